// Package key describes entity keys: ordered, non-empty lists of column
// names flagged as primary, unique or fulltext.
package key

import (
	"slices"
	"strings"
)

// Key is an ordered set of column names.
type Key struct {
	columns  []string
	name     string
	primary  bool
	unique   bool
	fulltext bool
}

// New returns a key over the given columns. The key name defaults to the
// columns joined with "_".
func New(columns ...string) *Key {
	return &Key{columns: slices.Clone(columns), name: strings.Join(columns, "_")}
}

// Primary returns a primary key over the given columns.
func Primary(columns ...string) *Key {
	return New(columns...).AsPrimary()
}

// Unique returns a unique key over the given columns.
func Unique(columns ...string) *Key {
	return New(columns...).AsUnique()
}

// AsPrimary marks the key as the primary key. A primary key is also unique.
func (k *Key) AsPrimary() *Key {
	k.primary = true
	k.unique = true
	return k
}

// AsUnique marks the key as unique.
func (k *Key) AsUnique() *Key {
	k.unique = true
	return k
}

// AsFulltext marks the key as a fulltext index.
func (k *Key) AsFulltext() *Key {
	k.fulltext = true
	return k
}

// Named overrides the generated key name.
func (k *Key) Named(name string) *Key {
	k.name = name
	return k
}

// Name returns the key name.
func (k *Key) Name() string { return k.name }

// Columns returns a copy of the key columns in declaration order.
func (k *Key) Columns() []string { return slices.Clone(k.columns) }

// Len returns the number of columns.
func (k *Key) Len() int { return len(k.columns) }

// IsPrimary reports whether the key is a primary key.
func (k *Key) IsPrimary() bool { return k.primary }

// IsUnique reports whether the key is unique.
func (k *Key) IsUnique() bool { return k.unique }

// IsFulltext reports whether the key is a fulltext index.
func (k *Key) IsFulltext() bool { return k.fulltext }

// IsSimple reports whether the key has exactly one column.
func (k *Key) IsSimple() bool { return len(k.columns) == 1 }

// Has reports whether the key contains the column.
func (k *Key) Has(column string) bool { return slices.Contains(k.columns, column) }

// Equal reports whether both keys cover the same set of columns,
// regardless of order.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	if len(k.columns) != len(other.columns) {
		return false
	}
	for _, c := range k.columns {
		if !other.Has(c) {
			return false
		}
	}
	for _, c := range other.columns {
		if !k.Has(c) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the key with the same flags.
func (k *Key) Clone() *Key {
	c := *k
	c.columns = slices.Clone(k.columns)
	return &c
}

// String returns the key name.
func (k *Key) String() string { return k.name }

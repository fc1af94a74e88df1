// Package dataloader provides generic batch loading helpers used to compose
// related rows onto the rows of a parent query.
//
// A composer fetches the related rows of a whole result in one query and
// matches them back by key:
//
//	keys := make([]dataloader.Key, len(rows))
//	for i, row := range rows {
//	    keys[i] = dataloader.RowKey(row, "id")
//	}
//	books, _ := fetcher.Fetch(ctx, q)
//	grouped := dataloader.GroupByKey(books, func(b map[string]any) dataloader.Key {
//	    return dataloader.RowKey(b, "__ref0")
//	})
//	for i, books := range dataloader.OrderGroupsByKeys(keys, grouped) {
//	    rows[i]["books"] = books
//	}
//
// # Composite Keys
//
// Rows are matched on key tuples. TupleKey turns the values of a tuple into
// a comparable Key:
//
//	k := dataloader.TupleKey(authorID, bookID)
package dataloader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a key has no value in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// Key is a comparable form of a key tuple.
type Key string

// TupleKey returns the key of a tuple of column values. Byte slices compare
// by content, so a driver returning []byte and another returning string for
// the same column yield equal keys.
func TupleKey(values ...any) Key {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(0)
		}
		switch v := v.(type) {
		case nil:
			sb.WriteString("\x01null")
		case []byte:
			sb.Write(v)
		case string:
			sb.WriteString(v)
		default:
			fmt.Fprint(&sb, v)
		}
	}
	return Key(sb.String())
}

// RowKey returns the key of the given columns of row.
func RowKey(row map[string]any, columns ...string) Key {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = row[c]
	}
	return TupleKey(values...)
}

// HasNull reports whether any of the given columns of row is NULL. Rows with
// a NULL key never match.
func HasNull(row map[string]any, columns ...string) bool {
	for _, c := range columns {
		if row[c] == nil {
			return true
		}
	}
	return false
}

// OrderByKeys reorders values to match the order of requested keys.
// Missing values are represented as zero values with corresponding errors.
// When several values share a key, the first one wins.
//
// Example:
//
//	rows, _ := fetcher.Fetch(ctx, q)
//	ordered, errs := OrderByKeys(ids, rows, func(r map[string]any) Key { return RowKey(r, "id") })
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		k := keyFn(v)
		if _, ok := lookup[k]; !ok {
			lookup[k] = v
		}
	}

	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError reorders values to match the order of requested keys.
// Returns zero values for missing keys without errors.
// Use this when missing values are acceptable (e.g., optional relations).
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups values by a key function, keeping their order.
// Useful for one-to-many relations where many rows share a foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped values to match the order of requested keys.
// Returns a slice of slices where each inner slice contains the values for that key.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// Unique returns keys without duplicates, keeping the first occurrence.
func Unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	result := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}

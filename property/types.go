package property

import (
	"time"

	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/relation"
)

// SlugPattern is the validation pattern of slug properties.
const SlugPattern = `(?i)^[A-Z_][A-Z\-0-9_]+$`

// DateTimeLayout is the storage layout of datetime and timestamp values.
const DateTimeLayout = "2006-01-02 15:04:05"

func typed(name string, t Type, zero any) *Property {
	p := New(name, t)
	p.withDef = func(p *Property) { p.defaultValue, p.hasDefault = zero, true }
	return p
}

// Boolean returns a boolean property.
func Boolean(name string) *Property { return typed(name, TBoolean, false) }

// String returns a string property.
func String(name string) *Property { return typed(name, TString, "") }

// Text returns a long text property.
func Text(name string) *Property { return typed(name, TText, "") }

// Int returns an integer property.
func Int(name string) *Property { return typed(name, TInt, 0) }

// BigInt returns a 64-bit integer property.
func BigInt(name string) *Property { return typed(name, TBigInt, int64(0)) }

// Float returns a floating point property.
func Float(name string) *Property { return typed(name, TFloat, 0.0) }

// Date returns a date property.
func Date(name string) *Property { return typed(name, TDate, "0000-00-00") }

// Time returns a time of day property.
func Time(name string) *Property { return typed(name, TTime, "00:00:00") }

// DateTime returns a datetime property.
func DateTime(name string) *Property { return typed(name, TDateTime, "0000-00-00 00:00:00") }

// Year returns a year property.
func Year(name string) *Property { return typed(name, TYear, "0000") }

// Timestamp returns a timestamp property. Integer constants in filters and
// assignments are read as unix seconds, time.Time constants are formatted.
func Timestamp(name string) *Property {
	p := typed(name, TTimestamp, "0000-00-00 00:00:00")
	p.before = timestampConstant
	return p
}

func timestampConstant(ec *exec.Context, _ *Property) error {
	if ec.Usage != exec.Filter && ec.Usage != exec.Assign {
		return nil
	}
	c := ec.Constant
	if c == nil || c.Substitution() != nil {
		return nil
	}
	switch v := c.Value.(type) {
	case int, int32, int64, uint32, uint64:
		c.Substitute(sql.F("FROM_UNIXTIME", sql.V(v)))
	case time.Time:
		c.Substitute(sql.V(v.Format(DateTimeLayout)))
	}
	return nil
}

// UUID returns a UUID property stored as text.
func UUID(name string) *Property {
	return New(name, TUUID).SetSerializer(UUIDSerializer{})
}

// ReferenceUUID returns a UUID property referencing entity. An empty
// relation type means relation.Reference.
func ReferenceUUID(name, entity string, typ relation.Type) *Property {
	return UUID(name).SetReference(entity, typ)
}

// ULID returns a ULID property stored as text.
func ULID(name string) *Property {
	return New(name, TULID).SetSerializer(ULIDSerializer{})
}

// JSON returns a property holding a JSON document.
func JSON(name string) *Property {
	return typed(name, TJSON, map[string]any{}).SetSerializer(JSONSerializer{})
}

// List returns a property holding a JSON array.
func List(name string) *Property {
	return typed(name, TList, []any{}).SetSerializer(JSONSerializer{ListOnly: true})
}

// Object returns a property holding an arbitrary value in binary form.
func Object(name string) *Property {
	return New(name, TObject).SetSerializer(MsgpackSerializer{})
}

// Enum returns an enum property. Its zero value is the first variant.
func Enum(name string, variants ...string) *Property {
	p := New(name, TEnum).SetVariants(variants...)
	p.withDef = func(p *Property) {
		if len(p.variants) > 0 {
			p.defaultValue, p.hasDefault = p.variants[0], true
		}
	}
	return p
}

// IPAddress returns a string property sized for textual IP addresses.
func IPAddress(name string) *Property {
	return String(name).SetMaxLength(32)
}

// Slug returns a string property restricted to identifier-like values.
func Slug(name string) *Property {
	return String(name).SetPattern(SlugPattern)
}

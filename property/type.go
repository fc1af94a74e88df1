package property

// Type is the semantic type of a property.
type Type string

// Property types.
const (
	TBoolean   Type = "boolean"
	TString    Type = "string"
	TText      Type = "text"
	TInt       Type = "integer"
	TBigInt    Type = "bigint"
	TFloat     Type = "float"
	TUUID      Type = "uuid"
	TULID      Type = "ulid"
	TDate      Type = "date"
	TTime      Type = "time"
	TDateTime  Type = "datetime"
	TTimestamp Type = "timestamp"
	TYear      Type = "year"
	TJSON      Type = "json"
	TEnum      Type = "enum"
	TList      Type = "list"
	TObject    Type = "object"
	TTuple     Type = "tuple"
)

// Types lists every property type.
var Types = []Type{
	TBoolean, TString, TText, TInt, TBigInt, TFloat, TUUID, TULID, TDate,
	TTime, TDateTime, TTimestamp, TYear, TJSON, TEnum, TList, TObject, TTuple,
}

// String returns the type name.
func (t Type) String() string { return string(t) }

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Numeric reports whether t holds numbers.
func (t Type) Numeric() bool {
	return t == TInt || t == TBigInt || t == TFloat || t == TYear
}

// Kind is the variant of a property. The variant decides how the property
// reacts to each usage context.
type Kind uint8

// Property variants.
const (
	KindScalar Kind = iota
	KindVirtual
	KindExpression
	KindLinked
	KindNestedTuple
	KindChildren
	KindCrossReference
	KindDerived
	KindDerivedExpression
)

var kindNames = [...]string{
	KindScalar:            "scalar",
	KindVirtual:           "virtual",
	KindExpression:        "expression",
	KindLinked:            "linked",
	KindNestedTuple:       "nested-tuple",
	KindChildren:          "children",
	KindCrossReference:    "cross-reference",
	KindDerived:           "derived",
	KindDerivedExpression: "derived-expression",
}

// String returns the variant name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

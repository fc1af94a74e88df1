package relation

// Type is the tag of a relation. Tags come in reversible pairs, with Join
// and Association mapping to themselves.
type Type string

// Relation type tags.
const (
	Join            Type = "join"
	Inheritance     Type = "inheritance"
	InheritedBy     Type = "inherited-by"
	SoftInheritance Type = "soft-inheritance"
	SoftInheritedBy Type = "soft-inherited-by"
	Reference       Type = "reference"
	Collection      Type = "collection"
	BelongsTo       Type = "belongs-to"
	Owns            Type = "owns"
	Child           Type = "child"
	Parent          Type = "parent"
	Extension       Type = "extension"
	ExtendedBy      Type = "extended-by"
	Association     Type = "association"
)

// Types lists every relation type tag.
var Types = []Type{
	Join, Inheritance, InheritedBy, SoftInheritance, SoftInheritedBy,
	Reference, Collection, BelongsTo, Owns, Child, Parent,
	Extension, ExtendedBy, Association,
}

var reversed = map[Type]Type{
	Join:            Join,
	Inheritance:     InheritedBy,
	InheritedBy:     Inheritance,
	SoftInheritance: SoftInheritedBy,
	SoftInheritedBy: SoftInheritance,
	Reference:       Collection,
	Collection:      Reference,
	BelongsTo:       Owns,
	Owns:            BelongsTo,
	Child:           Parent,
	Parent:          Child,
	Extension:       ExtendedBy,
	ExtendedBy:      Extension,
	Association:     Association,
}

// Valid reports whether t is a known tag.
func (t Type) Valid() bool {
	_, ok := reversed[t]
	return ok
}

// Reverse returns the tag seen from the other side of the relation.
// Unknown tags are returned unchanged.
func (t Type) Reverse() Type {
	if r, ok := reversed[t]; ok {
		return r
	}
	return t
}

// String returns the tag.
func (t Type) String() string { return string(t) }

// Direction tells which side of a relation depends on the other. Callers
// use it to order deletes and consistency checks.
type Direction int

// Directions.
const (
	TwoSided           Direction = iota
	LeftDependsOnRight           // the left entity depends on the right one
	RightDependsOnLeft           // the right entity depends on the left one
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case LeftDependsOnRight:
		return "left-depends-on-right"
	case RightDependsOnLeft:
		return "right-depends-on-left"
	default:
		return "two-sided"
	}
}

// Direction returns the static dependency direction of the tag.
func (t Type) Direction() Direction {
	switch t {
	case Join, Inheritance, SoftInheritance, Reference, BelongsTo, Child, Collection, Extension:
		return LeftDependsOnRight
	case InheritedBy, SoftInheritedBy, ExtendedBy, Parent, Owns:
		return RightDependsOnLeft
	default:
		return TwoSided
	}
}

// Rel is the cardinality of a relation.
type Rel int

// Relation cardinalities.
const (
	Unk Rel = iota
	O2O
	O2M
	M2O
	M2M
)

// String returns the cardinality name.
func (r Rel) String() string {
	switch r {
	case O2O:
		return "O2O"
	case O2M:
		return "O2M"
	case M2O:
		return "M2O"
	case M2M:
		return "M2M"
	default:
		return "Unk"
	}
}

// Rel returns the cardinality implied by the tag.
func (t Type) Rel() Rel {
	switch t {
	case Join, Inheritance, InheritedBy, SoftInheritance, SoftInheritedBy:
		return O2O
	case Reference, Owns, Parent, ExtendedBy:
		return O2M
	case Collection, BelongsTo, Child, Extension:
		return M2O
	case Association:
		return M2M
	default:
		return Unk
	}
}

// IsInheritance reports whether the tag is one of the inheritance tags.
func (t Type) IsInheritance() bool {
	switch t {
	case Inheritance, InheritedBy, SoftInheritance, SoftInheritedBy:
		return true
	}
	return false
}

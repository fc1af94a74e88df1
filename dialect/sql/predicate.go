package sql

// Binary is a binary comparison such as "a = b".
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

// Render implements Node.
func (p *Binary) Render(b *Builder) {
	p.Left.Render(b)
	b.Byte(' ').WriteString(p.Op).Byte(' ')
	p.Right.Render(b)
}

// Logical joins predicates with AND or OR.
type Logical struct {
	Op    string
	Nodes []Node
}

// Render implements Node.
func (p *Logical) Render(b *Builder) {
	if len(p.Nodes) == 1 {
		p.Nodes[0].Render(b)
		return
	}
	b.Byte('(')
	b.Join(p.Nodes, " "+p.Op+" ")
	b.Byte(')')
}

// Unary is a prefix or postfix predicate such as "NOT x" or "x IS NULL".
type Unary struct {
	Op      string
	Node    Node
	Postfix bool
}

// Render implements Node.
func (p *Unary) Render(b *Builder) {
	if p.Postfix {
		p.Node.Render(b)
		b.Byte(' ').WriteString(p.Op)
		return
	}
	b.WriteString(p.Op).Byte(' ')
	p.Node.Render(b)
}

// InList is an "x IN (...)" predicate.
type InList struct {
	Left   Node
	Values []Node
}

// Render implements Node.
func (p *InList) Render(b *Builder) {
	if len(p.Values) == 0 {
		b.WriteString("FALSE")
		return
	}
	p.Left.Render(b)
	b.WriteString(" IN ")
	List(p.Values).Render(b)
}

// EQ returns a "left = right" predicate.
func EQ(left, right Node) *Binary { return &Binary{Op: "=", Left: left, Right: right} }

// NEQ returns a "left <> right" predicate.
func NEQ(left, right Node) *Binary { return &Binary{Op: "<>", Left: left, Right: right} }

// GT returns a "left > right" predicate.
func GT(left, right Node) *Binary { return &Binary{Op: ">", Left: left, Right: right} }

// GTE returns a "left >= right" predicate.
func GTE(left, right Node) *Binary { return &Binary{Op: ">=", Left: left, Right: right} }

// LT returns a "left < right" predicate.
func LT(left, right Node) *Binary { return &Binary{Op: "<", Left: left, Right: right} }

// LTE returns a "left <= right" predicate.
func LTE(left, right Node) *Binary { return &Binary{Op: "<=", Left: left, Right: right} }

// ListEQ returns a column-list equality "(l1, l2) = (r1, r2)".
func ListEQ(left, right []Node) *Binary {
	return &Binary{Op: "=", Left: List(left), Right: List(right)}
}

// In returns a "left IN (values...)" predicate.
func In(left Node, values ...Node) *InList { return &InList{Left: left, Values: values} }

// And joins predicates with AND.
func And(nodes ...Node) *Logical { return &Logical{Op: "AND", Nodes: nodes} }

// Or joins predicates with OR.
func Or(nodes ...Node) *Logical { return &Logical{Op: "OR", Nodes: nodes} }

// Not negates a predicate.
func Not(n Node) *Unary { return &Unary{Op: "NOT", Node: n} }

// IsNull returns an "n IS NULL" predicate.
func IsNull(n Node) *Unary { return &Unary{Op: "IS NULL", Node: n, Postfix: true} }

// NotNull returns an "n IS NOT NULL" predicate.
func NotNull(n Node) *Unary { return &Unary{Op: "IS NOT NULL", Node: n, Postfix: true} }

// FieldEQ returns a predicate comparing a column with a value.
func FieldEQ(column string, v any) *Binary { return EQ(C(column), V(v)) }

// FieldIn returns a predicate checking a column against a list of values.
func FieldIn[T any](column string, vs ...T) *InList {
	values := make([]Node, len(vs))
	for i := range vs {
		values[i] = V(vs[i])
	}
	return In(C(column), values...)
}

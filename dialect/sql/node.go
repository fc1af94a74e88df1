package sql

import "slices"

// Node is an expression tree node. Properties and relations attach
// substitutions to nodes; the Builder renders them.
type Node interface {
	Render(b *Builder)
}

// Column references a property of an entity (or of a subject alias).
// A column may carry a substitution that replaces it when rendered.
type Column struct {
	Entity string // qualifier, empty for unqualified references
	Name   string

	substitution Node
}

// C returns an unqualified column reference.
func C(name string) *Column {
	return &Column{Name: name}
}

// EC returns a column reference qualified by entity.
func EC(entity, name string) *Column {
	return &Column{Entity: entity, Name: name}
}

// Substitute replaces the column with n when rendered.
func (c *Column) Substitute(n Node) { c.substitution = n }

// Substitution returns the node that replaces the column, if any.
func (c *Column) Substitution() Node { return c.substitution }

// Render implements Node.
func (c *Column) Render(b *Builder) {
	if c.substitution != nil {
		c.substitution.Render(b)
		return
	}
	if c.Entity != "" {
		b.Ident(c.Entity).Byte('.')
	}
	b.Ident(c.Name)
}

// Clone returns a copy of the column without its substitution.
func (c *Column) Clone() *Column {
	return &Column{Entity: c.Entity, Name: c.Name}
}

// Constant is a literal value bound as a query argument. Like a column,
// it may be substituted by another node.
type Constant struct {
	Value any

	substitution Node
}

// V returns a constant node.
func V(v any) *Constant { return &Constant{Value: v} }

// Substitute replaces the constant with n when rendered.
func (c *Constant) Substitute(n Node) { c.substitution = n }

// Substitution returns the node that replaces the constant, if any.
func (c *Constant) Substitution() Node { return c.substitution }

// Render implements Node.
func (c *Constant) Render(b *Builder) {
	if c.substitution != nil {
		c.substitution.Render(b)
		return
	}
	b.Arg(c.Value)
}

// Func is a function call expression.
type Func struct {
	Name string
	Args []Node
}

// F returns a function call node.
func F(name string, args ...Node) *Func { return &Func{Name: name, Args: args} }

// Render implements Node.
func (f *Func) Render(b *Builder) {
	b.WriteString(f.Name).Byte('(')
	b.Join(f.Args, ", ")
	b.Byte(')')
}

// Raw is a verbatim SQL fragment.
type Raw string

// Render implements Node.
func (r Raw) Render(b *Builder) { b.WriteString(string(r)) }

// List is a parenthesized, comma separated list of nodes.
type List []Node

// Render implements Node.
func (l List) Render(b *Builder) {
	b.Byte('(')
	b.Join(l, ", ")
	b.Byte(')')
}

// TupleColumn is one projected expression of a select list.
type TupleColumn struct {
	Expr  Node
	Alias string
}

// AliasOrName returns the alias, or the column name for bare column
// references, or "" for unnamed expressions.
func (tc *TupleColumn) AliasOrName() string {
	if tc.Alias != "" {
		return tc.Alias
	}
	if c, ok := tc.Expr.(*Column); ok {
		return c.Name
	}
	return ""
}

// Render implements Node.
func (tc *TupleColumn) Render(b *Builder) {
	tc.Expr.Render(b)
	if tc.Alias != "" {
		b.WriteString(" AS ").Ident(tc.Alias)
	}
}

// Tuple is the select list of a query. A default tuple selects all
// default columns of the entity ("SELECT *").
type Tuple struct {
	Default bool
	Columns []*TupleColumn
}

// DefaultTuple returns a "select *" tuple.
func DefaultTuple() *Tuple { return &Tuple{Default: true} }

// Columns returns a tuple of bare columns.
func Columns(names ...string) *Tuple {
	t := &Tuple{}
	for _, n := range names {
		t.Columns = append(t.Columns, &TupleColumn{Expr: C(n)})
	}
	return t
}

// IsDefault reports whether the tuple selects the default columns.
func (t *Tuple) IsDefault() bool { return t.Default && len(t.Columns) == 0 }

// Find returns the column whose alias or name is name.
func (t *Tuple) Find(name string) *TupleColumn {
	for _, c := range t.Columns {
		if c.AliasOrName() == name {
			return c
		}
	}
	return nil
}

// Add appends a column.
func (t *Tuple) Add(c *TupleColumn) *Tuple {
	t.Default = false
	t.Columns = append(t.Columns, c)
	return t
}

// AddIfNotExists appends c unless a column with the same alias or name is
// already projected, in which case the existing column is returned.
func (t *Tuple) AddIfNotExists(c *TupleColumn) *TupleColumn {
	if exists := t.Find(c.AliasOrName()); exists != nil {
		return exists
	}
	t.Add(c)
	return c
}

// Render implements Node.
func (t *Tuple) Render(b *Builder) {
	if t.IsDefault() {
		b.Byte('*')
		return
	}
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		c.Render(b)
	}
}

// Join is a JOIN clause.
type Join struct {
	Kind  string // "JOIN", "LEFT JOIN", ...
	Table string
	Alias string
	On    Node
}

// Select is a SELECT statement. When rendered inside another statement
// it is wrapped in parentheses and acts as a subquery.
type Select struct {
	From    string // entity the query selects from
	Table   string // rendered table name, defaults to From
	Alias   string // subject alias when used as a derived table
	Tuple   *Tuple
	Joins   []*Join
	Where   Node
	GroupBy []Node
	OrderBy []Node
}

// SelectFrom returns a default select over entity.
func SelectFrom(entity string) *Select {
	return &Select{From: entity, Tuple: DefaultTuple()}
}

// As sets the subject alias.
func (s *Select) As(alias string) *Select {
	s.Alias = alias
	return s
}

// Project replaces the select list with the given columns.
func (s *Select) Project(cols ...*TupleColumn) *Select {
	s.Tuple = &Tuple{Columns: slices.Clone(cols)}
	return s
}

// Filter ANDs p onto the WHERE clause.
func (s *Select) Filter(p Node) *Select {
	if s.Where == nil {
		s.Where = p
	} else {
		s.Where = And(s.Where, p)
	}
	return s
}

// Join adds a join clause.
func (s *Select) Join(kind, table, alias string, on Node) *Select {
	s.Joins = append(s.Joins, &Join{Kind: kind, Table: table, Alias: alias, On: on})
	return s
}

// Render implements Node.
func (s *Select) Render(b *Builder) {
	nested := b.depth > 0
	b.depth++
	if nested {
		b.Byte('(')
	}
	b.WriteString("SELECT ")
	if s.Tuple == nil {
		b.Byte('*')
	} else {
		s.Tuple.Render(b)
	}
	table := s.Table
	if table == "" {
		table = s.From
	}
	b.WriteString(" FROM ").Ident(table)
	if s.Alias != "" && s.Alias != table && !nested {
		b.WriteString(" AS ").Ident(s.Alias)
	}
	for _, j := range s.Joins {
		b.Byte(' ').WriteString(j.Kind).Byte(' ').Ident(j.Table)
		if j.Alias != "" {
			b.WriteString(" AS ").Ident(j.Alias)
		}
		if j.On != nil {
			b.WriteString(" ON ")
			j.On.Render(b)
		}
	}
	if s.Where != nil {
		b.WriteString(" WHERE ")
		s.Where.Render(b)
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.Join(s.GroupBy, ", ")
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.Join(s.OrderBy, ", ")
	}
	if nested {
		b.Byte(')')
		if s.Alias != "" {
			b.WriteString(" AS ").Ident(s.Alias)
		}
	}
	b.depth--
}

// CloneNode returns a deep copy of an expression tree. Substitutions are
// not copied. Subqueries are copied down to their clauses.
func CloneNode(n Node) Node {
	switch n := n.(type) {
	case nil:
		return nil
	case *Column:
		return n.Clone()
	case *Constant:
		return &Constant{Value: n.Value}
	case *Func:
		return &Func{Name: n.Name, Args: cloneNodes(n.Args)}
	case List:
		return List(cloneNodes(n))
	case *TupleColumn:
		return &TupleColumn{Expr: CloneNode(n.Expr), Alias: n.Alias}
	case *Binary:
		return &Binary{Op: n.Op, Left: CloneNode(n.Left), Right: CloneNode(n.Right)}
	case *Logical:
		return &Logical{Op: n.Op, Nodes: cloneNodes(n.Nodes)}
	case *Unary:
		return &Unary{Op: n.Op, Node: CloneNode(n.Node), Postfix: n.Postfix}
	case *InList:
		return &InList{Left: CloneNode(n.Left), Values: cloneNodes(n.Values)}
	case *Select:
		c := *n
		if n.Tuple != nil {
			t := &Tuple{Default: n.Tuple.Default}
			for _, tc := range n.Tuple.Columns {
				t.Columns = append(t.Columns, CloneNode(tc).(*TupleColumn))
			}
			c.Tuple = t
		}
		c.Joins = slices.Clone(n.Joins)
		c.Where = CloneNode(n.Where)
		c.GroupBy = cloneNodes(n.GroupBy)
		c.OrderBy = cloneNodes(n.OrderBy)
		return &c
	}
	return n
}

func cloneNodes(ns []Node) []Node {
	if ns == nil {
		return nil
	}
	c := make([]Node, len(ns))
	for i, n := range ns {
		c[i] = CloneNode(n)
	}
	return c
}

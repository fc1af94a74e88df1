package sql

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/entmeta/dialect"
)

// Builder renders expression nodes into SQL text and collects arguments.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	depth   int
}

// Dialect returns a builder for the given dialect.
func Dialect(name string) *Builder {
	return &Builder{dialect: dialect.Normalize(name)}
}

// Render renders the node with a builder of the given dialect.
func Render(dialectName string, n Node) (string, []any) {
	b := Dialect(dialectName)
	n.Render(b)
	return b.Query()
}

// Query returns the rendered text and its arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// WriteString writes s verbatim.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte writes c verbatim.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Ident writes a quoted identifier. Dotted identifiers are quoted per part.
func (b *Builder) Ident(s string) *Builder {
	for i, part := range strings.Split(s, ".") {
		if i > 0 {
			b.sb.WriteByte('.')
		}
		switch {
		case part == "*":
			b.sb.WriteByte('*')
		case b.dialect == dialect.Postgres:
			b.sb.WriteString(pq.QuoteIdentifier(part))
		case b.dialect == dialect.MySQL:
			b.sb.WriteByte('`')
			b.sb.WriteString(strings.ReplaceAll(part, "`", "``"))
			b.sb.WriteByte('`')
		default:
			b.sb.WriteByte('"')
			b.sb.WriteString(strings.ReplaceAll(part, `"`, `""`))
			b.sb.WriteByte('"')
		}
	}
	return b
}

// Arg writes a placeholder and records v as an argument.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteByte('$')
		b.sb.WriteString(strconv.Itoa(len(b.args)))
		return b
	}
	b.sb.WriteByte('?')
	return b
}

// Join renders nodes separated by sep.
func (b *Builder) Join(nodes []Node, sep string) *Builder {
	for i, n := range nodes {
		if i > 0 {
			b.sb.WriteString(sep)
		}
		n.Render(b)
	}
	return b
}

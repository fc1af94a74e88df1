package exec

import (
	"context"
	"fmt"
	"slices"
)

// Deserializer converts a raw column value into its Go value.
type Deserializer func(v any) (any, error)

// PostProcessor runs over the fetched rows after deserialization and
// returns the rows to pass on. Composers that attach related rows are
// post-processors; a tree builder may return fewer rows than it received.
type PostProcessor func(ctx context.Context, rows []Row) ([]Row, error)

// Plan collects the result processing registered while a query is compiled.
type Plan struct {
	order         []string
	deserializers map[string]Deserializer
	post          []PostProcessor
	hidden        []string
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{deserializers: make(map[string]Deserializer)}
}

// AddDeserializer registers d for the result column. A later registration
// for the same column replaces the earlier one.
func (p *Plan) AddDeserializer(column string, d Deserializer) {
	if _, ok := p.deserializers[column]; !ok {
		p.order = append(p.order, column)
	}
	p.deserializers[column] = d
}

// Deserializer returns the deserializer registered for column.
func (p *Plan) Deserializer(column string) (Deserializer, bool) {
	d, ok := p.deserializers[column]
	return d, ok
}

// Columns returns the columns with a deserializer, in registration order.
func (p *Plan) Columns() []string { return slices.Clone(p.order) }

// AddPostProcessor appends a post-processor.
func (p *Plan) AddPostProcessor(pp PostProcessor) {
	p.post = append(p.post, pp)
}

// AddHidden marks a result column as internal. Hidden columns are removed
// from the rows once all post-processors ran.
func (p *Plan) AddHidden(column string) {
	if !slices.Contains(p.hidden, column) {
		p.hidden = append(p.hidden, column)
	}
}

// Hidden returns the hidden result columns.
func (p *Plan) Hidden() []string { return slices.Clone(p.hidden) }

// Len returns the number of post-processors.
func (p *Plan) Len() int { return len(p.post) }

// Process deserializes every registered column of rows in place and then
// runs the post-processors in registration order.
func (p *Plan) Process(ctx context.Context, rows []Row) ([]Row, error) {
	for _, column := range p.order {
		d := p.deserializers[column]
		for i, row := range rows {
			v, ok := row[column]
			if !ok || v == nil {
				continue
			}
			dv, err := d(v)
			if err != nil {
				return nil, fmt.Errorf("exec: deserialize column %q of row %d: %w", column, i, err)
			}
			row[column] = dv
		}
	}
	for _, pp := range p.post {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if rows, err = pp(ctx, rows); err != nil {
			return nil, err
		}
	}
	if len(p.hidden) > 0 {
		for _, row := range rows {
			for _, h := range p.hidden {
				delete(row, h)
			}
		}
	}
	return rows, nil
}

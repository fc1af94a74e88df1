package property

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/contrib/dataloader"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/relation"
)

// Result keys and subjects used by composed properties.
const (
	ChildrenName = "children"
	ParentID     = "_parent_id"

	refPrefix       = "__ref"
	targetSubject   = "t0"
	junctionSubject = "t1"
)

// CrossReference returns the collection property of a many-to-many
// relation. Selecting it fetches the related rows of the target through
// the junction entity in one query per result and attaches them to each
// row as a list.
func CrossReference(name, target, junction string) *Property {
	p := Virtual(name, TTuple)
	p.kind = KindCrossReference
	p.target = target
	p.via = junction
	p.handlers[exec.Tuple] = crossReferenceTuple
	return p
}

// NestedTuple returns a property holding the given columns of the one row
// of from related to each result row.
func NestedTuple(name, from string, columns ...string) *Property {
	p := Virtual(name, TObject)
	p.kind = KindNestedTuple
	p.target = from
	p.columns = slices.Clone(columns)
	p.handlers[exec.Tuple] = nestedTupleTuple
	return p
}

// Children returns the property that turns a self-related result into a
// tree. An empty name means ChildrenName.
func Children(name string) *Property {
	if name == "" {
		name = ChildrenName
	}
	p := Virtual(name, TList)
	p.kind = KindChildren
	p.handlers[exec.Tuple] = childrenTuple
	return p
}

func crossReferenceTuple(ec *exec.Context, p *Property) (bool, error) {
	if err := requireComposer(ec, p); err != nil {
		return false, err
	}
	// Owner to junction, keyed by the owner primary key.
	crossRel, err := directRelation(ec.Schema, ec.Entity, p.via)
	if err != nil {
		return false, err
	}
	// Junction to target.
	toRel, err := directRelation(ec.Schema, p.via, p.target)
	if err != nil {
		return false, err
	}
	ownerCols, err := storageColumns(ec.Schema, ec.Entity, crossRel.LeftKey())
	if err != nil {
		return false, err
	}
	refCols, err := storageColumns(ec.Schema, p.via, crossRel.RightKey())
	if err != nil {
		return false, err
	}
	on, err := joinOn(ec.Schema, toRel, junctionSubject, targetSubject)
	if err != nil {
		return false, err
	}
	toTable, err := ec.Schema.Table(p.target)
	if err != nil {
		return false, err
	}
	junctionTable, err := ec.Schema.Table(p.via)
	if err != nil {
		return false, err
	}
	result := placeholder(ec)
	hidden := hiddenColumns(ec, ownerCols)
	fetcher := ec.Fetcher
	ec.Plan.AddPostProcessor(func(ctx context.Context, rows []exec.Row) ([]exec.Row, error) {
		keys, values := collectKeys(rows, hidden)
		if len(values) == 0 {
			for _, row := range rows {
				row[result] = []exec.Row{}
			}
			return rows, nil
		}
		q := &sql.Select{From: p.target, Table: toTable, Alias: targetSubject}
		q.Project(append([]*sql.TupleColumn{{Expr: sql.EC(targetSubject, "*")}}, refProjection(junctionSubject, refCols)...)...)
		q.Join("JOIN", junctionTable, junctionSubject, on)
		q.Filter(inTuples(junctionSubject, refCols, values))
		fetched, err := fetcher.Fetch(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("property: fetch %q of %q: %w", p.name, p.target, err)
		}
		grouped := dataloader.GroupByKey(fetched, refKey(len(refCols)))
		stripRefs(fetched, len(refCols))
		for i, group := range dataloader.OrderGroupsByKeys(keys, grouped) {
			if group == nil {
				group = []exec.Row{}
			}
			rows[i][result] = group
		}
		return rows, nil
	})
	return true, nil
}

func nestedTupleTuple(ec *exec.Context, p *Property) (bool, error) {
	if err := requireComposer(ec, p); err != nil {
		return false, err
	}
	rel, err := directRelation(ec.Schema, ec.Entity, p.target)
	if err != nil {
		return false, err
	}
	ownerCols, err := storageColumns(ec.Schema, ec.Entity, rel.LeftKey())
	if err != nil {
		return false, err
	}
	refCols, err := storageColumns(ec.Schema, p.target, rel.RightKey())
	if err != nil {
		return false, err
	}
	table, err := ec.Schema.Table(p.target)
	if err != nil {
		return false, err
	}
	projection := make([]*sql.TupleColumn, 0, len(p.columns)+len(refCols))
	for _, name := range p.columns {
		column, err := ec.Schema.Column(p.target, name)
		if err != nil {
			return false, err
		}
		projection = append(projection, &sql.TupleColumn{Expr: sql.EC(targetSubject, column), Alias: name})
	}
	projection = append(projection, refProjection(targetSubject, refCols)...)
	result := placeholder(ec)
	hidden := hiddenColumns(ec, ownerCols)
	fetcher := ec.Fetcher
	ec.Plan.AddPostProcessor(func(ctx context.Context, rows []exec.Row) ([]exec.Row, error) {
		keys, values := collectKeys(rows, hidden)
		if len(values) == 0 {
			for _, row := range rows {
				row[result] = nil
			}
			return rows, nil
		}
		q := &sql.Select{From: p.target, Table: table, Alias: targetSubject}
		q.Project(projection...)
		q.Filter(inTuples(targetSubject, refCols, values))
		fetched, err := fetcher.Fetch(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("property: fetch %q of %q: %w", p.name, p.target, err)
		}
		matched := dataloader.OrderByKeysNoError(keys, fetched, refKey(len(refCols)))
		stripRefs(fetched, len(refCols))
		for i, m := range matched {
			if m == nil {
				rows[i][result] = nil
				continue
			}
			rows[i][result] = m
		}
		return rows, nil
	})
	return true, nil
}

func childrenTuple(ec *exec.Context, p *Property) (bool, error) {
	if ec.Schema == nil || ec.Plan == nil || ec.Column == nil {
		return false, fmt.Errorf("property: children property %q needs a schema and a plan", p.name)
	}
	rel, err := directRelation(ec.Schema, ec.Entity, ec.Entity)
	if err != nil {
		return false, fmt.Errorf("property: children property %q needs a self relation: %w", p.name, err)
	}
	parentCols, err := storageColumns(ec.Schema, ec.Entity, rel.LeftKey())
	if err != nil {
		return false, err
	}
	pk, err := ec.Schema.PrimaryKey(ec.Entity)
	if err != nil {
		return false, err
	}
	pkCols, err := storageColumns(ec.Schema, ec.Entity, pk)
	if err != nil {
		return false, err
	}
	if len(parentCols) != 1 || len(pkCols) != 1 {
		return false, entmeta.NewTransformationError("children tree needs single column keys", ec.Entity)
	}
	result := ec.ResultName()
	ec.Column.Substitute(sql.EC(ec.Subject, parentCols[0]))
	if tc := ec.TupleColumn(); tc != nil {
		tc.Alias = ParentID
	}
	id := ec.HiddenColumn(pkCols[0])
	// The plan strips hidden columns from roots only.
	hiddenID := slices.Contains(ec.Plan.Hidden(), id)
	ec.Plan.AddPostProcessor(func(_ context.Context, rows []exec.Row) ([]exec.Row, error) {
		roots := buildTree(rows, id, result)
		if hiddenID {
			for _, row := range rows {
				delete(row, id)
			}
		}
		return roots, nil
	})
	return true, nil
}

// buildTree moves every row whose parent is in rows into the list of its
// parent and returns the roots.
func buildTree(rows []exec.Row, id, children string) []exec.Row {
	index := make(map[dataloader.Key]exec.Row, len(rows))
	for _, row := range rows {
		if _, ok := row[children]; !ok {
			row[children] = []exec.Row{}
		}
		index[dataloader.TupleKey(row[id])] = row
	}
	roots := make([]exec.Row, 0, len(rows))
	for _, row := range rows {
		parentID := row[ParentID]
		delete(row, ParentID)
		if parentID == nil {
			roots = append(roots, row)
			continue
		}
		pk := dataloader.TupleKey(parentID)
		parent, ok := index[pk]
		if !ok || pk == dataloader.TupleKey(row[id]) {
			roots = append(roots, row)
			continue
		}
		list, _ := parent[children].([]exec.Row)
		parent[children] = append(list, row)
	}
	return roots
}

func requireComposer(ec *exec.Context, p *Property) error {
	var errs []error
	if ec.Schema == nil {
		errs = append(errs, errors.New("no schema"))
	}
	if ec.Fetcher == nil {
		errs = append(errs, errors.New("no fetcher"))
	}
	if ec.Plan == nil {
		errs = append(errs, errors.New("no result plan"))
	}
	if ec.Column == nil {
		errs = append(errs, errors.New("no column"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("property: compose %q: %w", p.name, err)
	}
	return nil
}

func directRelation(schema exec.Schema, from, to string) (*relation.Direct, error) {
	r, err := schema.Relation(from, to)
	if err != nil {
		return nil, err
	}
	d, ok := r.(*relation.Direct)
	if !ok {
		e := entmeta.NewTransformationError("relation is not direct", from, to)
		e.RelationType = string(r.Type())
		return nil, e
	}
	return d, nil
}

// storageColumns maps the properties of a key to storage columns.
func storageColumns(schema exec.Schema, entity string, k *key.Key) ([]string, error) {
	if k == nil {
		return nil, entmeta.NewTransformationError("relation without key", entity)
	}
	cols := make([]string, 0, k.Len())
	for _, name := range k.Columns() {
		c, err := schema.Column(entity, name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// joinOn renders the join condition of r between two subjects in storage
// columns.
func joinOn(schema exec.Schema, r *relation.Direct, left, right string) (sql.Node, error) {
	lc, err := storageColumns(schema, r.Left(), r.LeftKey())
	if err != nil {
		return nil, err
	}
	rc, err := storageColumns(schema, r.Right(), r.RightKey())
	if err != nil {
		return nil, err
	}
	stored := relation.NewDirect(left, key.New(lc...), right, key.New(rc...), r.Type())
	for _, c := range r.Conditions() {
		stored.AddCondition(c)
	}
	return stored.JoinCondition(left, right)
}

// placeholder turns the property column into an empty column filled by a
// post-processor and returns its result key.
func placeholder(ec *exec.Context) string {
	ec.Column.Substitute(sql.Raw("NULL"))
	aliasResult(ec)
	return ec.ResultName()
}

func hiddenColumns(ec *exec.Context, columns []string) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = ec.HiddenColumn(c)
	}
	return names
}

// collectKeys returns the key of every row and the distinct non-null key
// tuples as IN values.
func collectKeys(rows []exec.Row, columns []string) ([]dataloader.Key, []sql.Node) {
	keys := make([]dataloader.Key, len(rows))
	seen := make(map[dataloader.Key]struct{}, len(rows))
	var values []sql.Node
	for i, row := range rows {
		keys[i] = dataloader.RowKey(row, columns...)
		if dataloader.HasNull(row, columns...) {
			continue
		}
		if _, ok := seen[keys[i]]; ok {
			continue
		}
		seen[keys[i]] = struct{}{}
		if len(columns) == 1 {
			values = append(values, sql.V(row[columns[0]]))
			continue
		}
		tuple := make(sql.List, len(columns))
		for j, c := range columns {
			tuple[j] = sql.V(row[c])
		}
		values = append(values, tuple)
	}
	return keys, values
}

func inTuples(subject string, columns []string, values []sql.Node) sql.Node {
	if len(columns) == 1 {
		return sql.In(sql.EC(subject, columns[0]), values...)
	}
	left := make(sql.List, len(columns))
	for i, c := range columns {
		left[i] = sql.EC(subject, c)
	}
	return sql.In(left, values...)
}

func refAlias(i int) string { return refPrefix + strconv.Itoa(i) }

func refProjection(subject string, columns []string) []*sql.TupleColumn {
	tcs := make([]*sql.TupleColumn, len(columns))
	for i, c := range columns {
		tcs[i] = &sql.TupleColumn{Expr: sql.EC(subject, c), Alias: refAlias(i)}
	}
	return tcs
}

func refKey(n int) dataloader.KeyFunc[dataloader.Key, exec.Row] {
	aliases := make([]string, n)
	for i := range aliases {
		aliases[i] = refAlias(i)
	}
	return func(row exec.Row) dataloader.Key {
		return dataloader.RowKey(row, aliases...)
	}
}

func stripRefs(rows []exec.Row, n int) {
	for _, row := range rows {
		for i := 0; i < n; i++ {
			delete(row, refAlias(i))
		}
	}
}

package property

import (
	"fmt"

	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
)

// Virtual returns a property without a physical column. It reacts only to
// the usage contexts it has a handler for:
//
//	p := property.Virtual("fullName", property.TString).
//		SetHandler(exec.Tuple, func(ec *exec.Context, p *property.Property) (bool, error) {
//			ec.Column.Substitute(sql.F("CONCAT", sql.C("first"), sql.V(" "), sql.C("last")))
//			return true, nil
//		})
func Virtual(name string, typ Type) *Property {
	p := New(name, typ)
	p.virtual = true
	p.kind = KindVirtual
	return p
}

// Expression returns a virtual property standing for expr. Every reference
// renders a fresh copy of expr. Expressions cannot be assigned.
func Expression(name string, expr sql.Node, typ Type) *Property {
	p := Virtual(name, typ)
	p.kind = KindExpression
	p.expression = expr
	p.single = substituteExpression
	return p.Disable(exec.Assign)
}

func substituteExpression(ec *exec.Context, p *Property) (bool, error) {
	if ec.Column == nil {
		return false, nil
	}
	ec.Column.Substitute(sql.CloneNode(p.expression))
	if ec.Usage == exec.Tuple {
		aliasResult(ec)
	}
	return true, nil
}

// Linked returns a virtual property reading the property of another
// entity joined to the query. An empty ownerProperty means the property of
// the same name.
func Linked(name, ownerEntity, ownerProperty string) *Property {
	p := Virtual(name, "")
	p.kind = KindLinked
	p.target = ownerEntity
	p.via = ownerProperty
	p.handlers[exec.Tuple] = linkedColumn
	p.handlers[exec.Filter] = linkedColumn
	return p
}

func linkedColumn(ec *exec.Context, p *Property) (bool, error) {
	if ec.Column == nil {
		return false, nil
	}
	if ec.Schema == nil {
		return false, fmt.Errorf("property: linked property %q needs a schema", p.name)
	}
	name := p.via
	if name == "" {
		name = p.name
	}
	column, err := ec.Schema.Column(p.target, name)
	if err != nil {
		return false, err
	}
	ec.Column.Substitute(sql.EC(p.target, column))
	if ec.Usage == exec.Tuple {
		aliasResult(ec)
	}
	return true, nil
}

// aliasResult keeps the property name as the result key of a substituted
// column.
func aliasResult(ec *exec.Context) {
	if tc := ec.TupleColumn(); tc != nil && tc.Alias == "" {
		tc.Alias = ec.Column.Name
	}
}

package property

import "github.com/syssam/entmeta/exec"

// Derive returns a read-only view of original under a new name, as exposed
// by a derived entity. An empty name keeps the original name. Handling is
// delegated to original. The access groups given here replace those of the
// original; without any, the original groups apply.
func Derive(original *Property, name string, accessGroups ...string) *Property {
	if original.kind == KindDerived && original.original != nil {
		original = original.original
	}
	d := original.Clone()
	if name != "" {
		d.name = name
	}
	d.field = ""
	d.kind = KindDerived
	d.original = original
	d.accessGroups = nil
	if len(accessGroups) > 0 {
		d.accessGroups = append([]string(nil), accessGroups...)
	}
	d.aspectGroups = nil
	d.definition = original.definition
	d.after = original.after
	d.frozen = true
	return d
}

// DerivedExpression returns the property of a derived entity column that
// is computed by the subquery, such as a function call or a nested select.
// It has no stored counterpart and is read-only.
func DerivedExpression(name string, typ Type) *Property {
	if typ == "" {
		typ = TString
	}
	p := New(name, typ)
	p.virtual = true
	p.kind = KindDerivedExpression
	p.disabled[exec.Assign] = true
	return p
}

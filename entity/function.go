package entity

import (
	"strings"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
)

// FunctionHandler rewrites a call of an entity function inside a query,
// usually by substituting the call node.
type FunctionHandler func(ec *exec.Context, call *sql.Func) error

// Function is a named function an entity exposes to queries, such as a
// full-text match or a computed lookup.
type Function struct {
	name         string
	public       bool
	accessGroups []string
	handler      FunctionHandler
}

// NewFunction returns a function handled by h.
func NewFunction(name string, h FunctionHandler) *Function {
	return &Function{name: name, handler: h}
}

// Name returns the function name.
func (f *Function) Name() string { return f.name }

// AsPublic allows calling the function from outside the entity's module.
func (f *Function) AsPublic() *Function {
	f.public = true
	return f
}

// IsPublic reports whether the function may be called externally.
func (f *Function) IsPublic() bool { return f.public }

// SetAccessGroups sets the groups allowed to call the function.
func (f *Function) SetAccessGroups(groups ...string) *Function {
	f.accessGroups = append([]string(nil), groups...)
	return f
}

// AccessGroups returns the groups allowed to call the function.
func (f *Function) AccessGroups() []string { return f.accessGroups }

// IsCompatibleWith reports whether call refers to f. Function names are
// case-insensitive, as in SQL.
func (f *Function) IsCompatibleWith(call *sql.Func) bool {
	return call != nil && strings.EqualFold(call.Name, f.name)
}

// Handle applies the function to a call.
func (f *Function) Handle(ec *exec.Context, call *sql.Func) error {
	if f.handler == nil {
		return nil
	}
	return f.handler(ec, call)
}

// FunctionStorage holds functions by name.
type FunctionStorage struct {
	entity    string
	functions ordered[*Function]
}

// NewFunctionStorage returns an empty storage. The entity name is used in
// errors only.
func NewFunctionStorage(entity string) *FunctionStorage {
	return &FunctionStorage{entity: entity, functions: newOrdered[*Function]()}
}

// Get returns the function registered under name.
func (s *FunctionStorage) Get(name string) (*Function, error) {
	if f, ok := s.functions.get(name); ok {
		return f, nil
	}
	return nil, entmeta.NewFunctionNotFoundError(s.entity, name)
}

// Find returns the function registered under name, or nil.
func (s *FunctionStorage) Find(name string) *Function {
	f, _ := s.functions.get(name)
	return f
}

// Has reports whether a function is registered under name.
func (s *FunctionStorage) Has(name string) bool { return s.functions.has(name) }

// Add registers f. Registering a name twice fails unless redefine is set.
func (s *FunctionStorage) Add(f *Function, redefine bool) error {
	if !redefine && s.functions.has(f.name) {
		return entmeta.NewDescriptorError(s.entity, "function %q is already defined", f.name)
	}
	s.functions.set(f.name, f)
	return nil
}

// List returns the functions in registration order.
func (s *FunctionStorage) List() []*Function { return s.functions.list() }

// Match returns the first function compatible with call, or nil.
func (s *FunctionStorage) Match(call *sql.Func) *Function {
	for _, f := range s.functions.list() {
		if f.IsCompatibleWith(call) {
			return f
		}
	}
	return nil
}

// Package entity builds entity metadata from definitions and keeps the
// built entities in a registry.
//
// A Definition is turned into a Descriptor, which runs the staged build
// plan and describes properties, keys, relations and the rest while it is
// building. A successful build yields an immutable Entity.
package entity

// Entity is a built entity. It is immutable and safe for concurrent use.
type Entity struct {
	model
}

var (
	_ Model = (*Entity)(nil)
	_ Model = (*Descriptor)(nil)
)

// State returns Built.
func (e *Entity) State() State { return Built }

// Package mixin provides ready-to-use entity aspects.
//
// An aspect is a reusable set of properties, modifiers and build
// callbacks that can be listed by several entity definitions. The aspects
// of this package apply themselves, so they can be listed directly:
//
//	entity.Declare("User").
//	    AddAspects(mixin.Time{}, mixin.SoftDelete{}).
//	    AddProperties(property.Int("id").AsPrimaryKey().AsAutoIncrement())
//
// Declaration files list aspects by name. Register the package factory
// with the registry to resolve them:
//
//	reg, err := entity.NewRegistry(entity.WithAspectFactory(mixin.Factory()))
//
// Available aspects:
//
//   - ID: UUID primary key
//   - CreateTime: createdAt, set on creation and read-only
//   - UpdateTime: updatedAt, set on creation and on every update
//   - Time: CreateTime and UpdateTime
//   - SoftDelete: nullable deletedAt and the "withoutDeleted" modifier
//   - TimeSoftDelete: Time and SoftDelete
//   - TenantID: read-only tenantId and the "tenant" modifier
//
// Custom aspects implement entity.Applier:
//
//	type Audit struct{}
//
//	func (Audit) AspectName() string { return "audit" }
//
//	func (Audit) ApplyAspect(d *entity.Descriptor) error {
//	    return d.DescribeProperty(property.String("createdBy").AsReadOnly())
//	}
package mixin

package mixin

import (
	"fmt"

	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/privacy"
	"github.com/syssam/entmeta/property"
)

// Property and modifier names used by the aspects.
const (
	CreatedAt = "createdAt"
	UpdatedAt = "updatedAt"
	DeletedAt = "deletedAt"
	TenantKey = "tenantId"

	WithoutDeleted = "withoutDeleted"
	TenantFilter   = "tenant"
)

// now is the storage-side current time.
var now = sql.Raw("CURRENT_TIMESTAMP")

// describe adds ps to d, tagging them with the aspect group.
func describe(d *entity.Descriptor, group string, ps ...*property.Property) error {
	for _, p := range ps {
		if err := d.DescribeProperty(p.AddAspectGroups(group)); err != nil {
			return err
		}
	}
	return nil
}

// ID adds a UUID primary key called id.
type ID struct{}

// AspectName implements entity.Aspect.
func (ID) AspectName() string { return "id" }

// ApplyAspect implements entity.Applier.
func (a ID) ApplyAspect(d *entity.Descriptor) error {
	return describe(d, a.AspectName(), property.UUID("id").AsPrimaryKey().AsReadOnly())
}

// CreateTime adds the createdAt timestamp. It is set on creation and
// cannot be assigned.
type CreateTime struct{}

// AspectName implements entity.Aspect.
func (CreateTime) AspectName() string { return "createTime" }

// ApplyAspect implements entity.Applier.
func (a CreateTime) ApplyAspect(d *entity.Descriptor) error {
	return describe(d, a.AspectName(), createdAt())
}

func createdAt() *property.Property {
	return property.Timestamp(CreatedAt).SetOnCreate(now).AsReadOnly()
}

// UpdateTime adds the updatedAt timestamp, refreshed on every update.
type UpdateTime struct{}

// AspectName implements entity.Aspect.
func (UpdateTime) AspectName() string { return "updateTime" }

// ApplyAspect implements entity.Applier.
func (a UpdateTime) ApplyAspect(d *entity.Descriptor) error {
	return describe(d, a.AspectName(), updatedAt())
}

func updatedAt() *property.Property {
	return property.Timestamp(UpdatedAt).SetOnCreate(now).SetOnUpdate(now)
}

// Time adds createdAt and updatedAt.
type Time struct{}

// AspectName implements entity.Aspect.
func (Time) AspectName() string { return "time" }

// ApplyAspect implements entity.Applier.
func (a Time) ApplyAspect(d *entity.Descriptor) error {
	return describe(d, a.AspectName(), createdAt(), updatedAt())
}

// SoftDelete adds the nullable deletedAt timestamp and the
// withoutDeleted modifier, which drops soft deleted rows from a query.
type SoftDelete struct{}

// AspectName implements entity.Aspect.
func (SoftDelete) AspectName() string { return "softDelete" }

// ApplyAspect implements entity.Applier.
func (a SoftDelete) ApplyAspect(d *entity.Descriptor) error {
	return softDelete(d, a.AspectName())
}

func softDelete(d *entity.Descriptor, group string) error {
	if err := describe(d, group, property.Timestamp(DeletedAt).AsNullable()); err != nil {
		return err
	}
	return d.DescribeModifier(entity.NewModifier(WithoutDeleted, nil, func(q *sql.Select, ec *exec.Context) error {
		q.Filter(sql.IsNull(sql.EC(subject(q, ec), DeletedAt)))
		return nil
	}))
}

// TimeSoftDelete combines Time and SoftDelete.
type TimeSoftDelete struct{}

// AspectName implements entity.Aspect.
func (TimeSoftDelete) AspectName() string { return "timeSoftDelete" }

// ApplyAspect implements entity.Applier.
func (a TimeSoftDelete) ApplyAspect(d *entity.Descriptor) error {
	if err := describe(d, a.AspectName(), createdAt(), updatedAt()); err != nil {
		return err
	}
	return softDelete(d, a.AspectName())
}

// TenantID adds the read-only tenantId and the tenant modifier, which
// restricts a query to the tenant of the viewer found in the context.
type TenantID struct{}

// AspectName implements entity.Aspect.
func (TenantID) AspectName() string { return "tenantId" }

// ApplyAspect implements entity.Applier.
func (a TenantID) ApplyAspect(d *entity.Descriptor) error {
	if err := describe(d, a.AspectName(), property.String(TenantKey).AsReadOnly()); err != nil {
		return err
	}
	return d.DescribeModifier(entity.NewModifier(TenantFilter, nil, func(q *sql.Select, ec *exec.Context) error {
		v := privacy.ViewerFromContext(ec.Context())
		if v == nil || v.GetTenantID() == "" {
			return privacy.Denyf("mixin: tenant of %q queried without a tenant viewer", ec.Entity)
		}
		q.Filter(sql.EQ(sql.EC(subject(q, ec), TenantKey), sql.V(v.GetTenantID())))
		return nil
	}))
}

// subject returns the name qualifying columns of the queried entity.
func subject(q *sql.Select, ec *exec.Context) string {
	switch {
	case ec.Subject != "":
		return ec.Subject
	case q.Alias != "":
		return q.Alias
	}
	return q.From
}

// Factory returns the builders of every aspect of the package, keyed by
// aspect name, for definitions that list aspects by name.
func Factory() entity.AspectFactory {
	f := make(entity.AspectFactory)
	for _, a := range []entity.Applier{ID{}, CreateTime{}, UpdateTime{}, Time{}, SoftDelete{}, TimeSoftDelete{}, TenantID{}} {
		f[a.AspectName()] = apply(a)
	}
	return f
}

func apply(a entity.Applier) entity.AspectBuilder {
	return func(d *entity.Descriptor, named entity.Aspect) error {
		if named.AspectName() != a.AspectName() {
			return fmt.Errorf("mixin: aspect %q built as %q", named.AspectName(), a.AspectName())
		}
		return a.ApplyAspect(d)
	}
}

var (
	_ entity.Applier = ID{}
	_ entity.Applier = CreateTime{}
	_ entity.Applier = UpdateTime{}
	_ entity.Applier = Time{}
	_ entity.Applier = SoftDelete{}
	_ entity.Applier = TimeSoftDelete{}
	_ entity.Applier = TenantID{}
)

package privacy

import (
	"context"
	"slices"
)

// Viewer represents the authenticated user making a request.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles. Roles are matched against the
	// access groups of properties.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier for multi-tenancy.
	// Returns empty string if not applicable.
	GetTenantID() string
}

// viewerCtxKey is the context key for storing the viewer.
type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule that denies access if no viewer is present
// in the context.
//
//	privacy.Policy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.AccessGroupRule(),
//	}
func DenyIfNoViewer() Rule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("entmeta/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has the
// specified role, and skips otherwise.
func HasRole(role string) Rule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows access if the viewer has any of
// the specified roles, and skips otherwise.
func HasAnyRole(roles ...string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// AccessGroupRule returns a rule matching the access groups of a property
// against the roles of the viewer. Properties without access groups are
// skipped; a restricted property is allowed when the viewer holds one of
// its groups and denied otherwise.
func AccessGroupRule() Rule {
	return RuleFunc(func(ctx context.Context, ref Reference) error {
		if len(ref.AccessGroups) == 0 {
			return Skip
		}
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("entmeta/privacy: %s.%s requires a viewer", ref.Entity, ref.Property)
		}
		for _, role := range viewer.GetRoles() {
			if slices.Contains(ref.AccessGroups, role) {
				return Allow
			}
		}
		return Denyf("entmeta/privacy: %s.%s is not accessible to viewer %q", ref.Entity, ref.Property, viewer.GetID())
	})
}

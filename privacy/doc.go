// The privacy layer evaluates property access rules while a query is
// compiled, before anything reaches the database.
//
// # Core Concepts
//
//   - Rule: a function that returns Allow, Deny, or Skip for a Reference
//   - Policy: an ordered list of rules; the first decision wins
//   - Viewer: the current user, carried by the context
//
// A Reference names the entity, the property, its access groups and the
// usage context (tuple, filter, assign, ...) of the reference.
//
// # Guarding Entities
//
// The privacy Aspect installs a policy on every property of an entity:
//
//	entity.Declare("Employee").
//	    AddAspects(privacy.Aspect{Rule: privacy.Policy{
//	        privacy.HasRole("admin"),
//	        privacy.DenyUsageRule(exec.Assign),
//	        privacy.AccessGroupRule(),
//	    }}).
//	    AddProperties(
//	        property.Int("id").AsPrimaryKey(),
//	        property.Float("salary").SetAccessGroups("hr"),
//	    )
//
// Handling salary for a viewer without the "admin" or "hr" role then fails:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "7", Roles: []string{"staff"}})
//	err := salary.Handle(exec.NewContext(ctx, exec.Tuple))
//	errors.Is(err, privacy.Deny) // true
//
// # Overriding Decisions
//
// DecisionContext attaches a decision to a context. Policies return it
// without evaluating their rules, which is how trusted internal callers
// bypass the rules:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy

// Package privacy provides sets of types and helpers for writing property
// access rules, and deal with their evaluation while queries are compiled.
package privacy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/entmeta/exec"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from rules to indicate how the
// policy evaluation should proceed. Use errors.Is() to check for these
// values:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("entmeta/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("entmeta/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("entmeta/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Reference is one use of a property in a query being compiled.
type Reference struct {
	Entity       string
	Property     string
	AccessGroups []string
	Usage        exec.Usage
}

type (
	// Rule decides whether a property reference is allowed.
	Rule interface {
		EvalReference(context.Context, Reference) error
	}

	// RuleFunc type is an adapter which allows the use of ordinary
	// functions as rules.
	RuleFunc func(context.Context, Reference) error
)

// EvalReference returns f(ctx, ref).
func (f RuleFunc) EvalReference(ctx context.Context, ref Reference) error {
	return f(ctx, ref)
}

// Policy combines multiple rules into a single rule. The first rule
// returning a decision other than Skip ends the evaluation; a policy
// where every rule skips allows the reference.
type Policy []Rule

// EvalReference evaluates the rules of the policy in order. A decision
// attached to ctx with DecisionContext overrides the rules.
func (policy Policy) EvalReference(ctx context.Context, ref Reference) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range policy {
		switch decision := rule.EvalReference(ctx, ref); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function.
// Returning nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ Reference) error {
		return eval(ctx)
	})
}

// OnUsage evaluates rule only for references in one of the given usage
// contexts, and skips the others.
func OnUsage(rule Rule, usages ...exec.Usage) Rule {
	return RuleFunc(func(ctx context.Context, ref Reference) error {
		if slices.Contains(usages, ref.Usage) {
			return rule.EvalReference(ctx, ref)
		}
		return Skip
	})
}

// DenyUsageRule returns a rule denying references in the given usage
// contexts.
func DenyUsageRule(usages ...exec.Usage) Rule {
	rule := RuleFunc(func(_ context.Context, ref Reference) error {
		return Denyf("entmeta/privacy: %s of %s.%s is not allowed", ref.Usage, ref.Entity, ref.Property)
	})
	return OnUsage(rule, usages...)
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalReference(context.Context, Reference) error {
	return f.decision
}

var _ Rule = Policy(nil)

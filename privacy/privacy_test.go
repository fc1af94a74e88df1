package privacy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/privacy"
)

func ref(usage exec.Usage, groups ...string) privacy.Reference {
	return privacy.Reference{Entity: "Employee", Property: "salary", AccessGroups: groups, Usage: usage}
}

func TestDecisions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"allowf", privacy.Allowf("ok %d", 1), privacy.Allow},
		{"denyf", privacy.Denyf("no %s", "way"), privacy.Deny},
		{"skipf", privacy.Skipf("later"), privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.is)
		})
	}
	assert.Equal(t, "no way: entmeta/privacy: deny rule", privacy.Denyf("no %s", "way").Error())
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	var calls []string
	rule := func(name string, decision error) privacy.Rule {
		return privacy.RuleFunc(func(context.Context, privacy.Reference) error {
			calls = append(calls, name)
			return decision
		})
	}

	t.Run("first decision wins", func(t *testing.T) {
		calls = nil
		p := privacy.Policy{rule("a", privacy.Skip), rule("b", nil), rule("c", privacy.Allow), rule("d", privacy.Deny)}
		assert.NoError(t, p.EvalReference(ctx, ref(exec.Tuple)))
		assert.Equal(t, []string{"a", "b", "c"}, calls)
	})

	t.Run("deny", func(t *testing.T) {
		calls = nil
		p := privacy.Policy{rule("a", privacy.Deny), rule("b", privacy.Allow)}
		assert.ErrorIs(t, p.EvalReference(ctx, ref(exec.Tuple)), privacy.Deny)
		assert.Equal(t, []string{"a"}, calls)
	})

	t.Run("custom error", func(t *testing.T) {
		boom := errors.New("boom")
		p := privacy.Policy{rule("a", boom)}
		assert.ErrorIs(t, p.EvalReference(ctx, ref(exec.Tuple)), boom)
	})

	t.Run("no decision allows", func(t *testing.T) {
		assert.NoError(t, privacy.Policy{}.EvalReference(ctx, ref(exec.Tuple)))
		assert.NoError(t, privacy.Policy{rule("a", privacy.Skip)}.EvalReference(ctx, ref(exec.Tuple)))
	})

	t.Run("nested", func(t *testing.T) {
		inner := privacy.Policy{privacy.AlwaysDenyRule()}
		p := privacy.Policy{inner, privacy.AlwaysAllowRule()}
		assert.ErrorIs(t, p.EvalReference(ctx, ref(exec.Tuple)), privacy.Deny)
	})
}

func TestDecisionContext(t *testing.T) {
	ctx := context.Background()
	p := privacy.Policy{privacy.AlwaysDenyRule()}

	allowed := privacy.DecisionContext(ctx, privacy.Allow)
	assert.NoError(t, p.EvalReference(allowed, ref(exec.Filter)))

	decision, ok := privacy.DecisionFromContext(allowed)
	assert.True(t, ok)
	assert.NoError(t, decision)

	skipped := privacy.DecisionContext(ctx, privacy.Skip)
	_, ok = privacy.DecisionFromContext(skipped)
	assert.False(t, ok, "skip decisions are not attached")

	denied := privacy.DecisionContext(ctx, privacy.Denyf("frozen"))
	err := privacy.Policy{privacy.AlwaysAllowRule()}.EvalReference(denied, ref(exec.Filter))
	assert.ErrorIs(t, err, privacy.Deny)
}

func TestUsageRules(t *testing.T) {
	ctx := context.Background()
	deny := privacy.DenyUsageRule(exec.Assign, exec.OrderBy)

	for _, u := range exec.Usages() {
		t.Run(u.String(), func(t *testing.T) {
			err := deny.EvalReference(ctx, ref(u))
			if u == exec.Assign || u == exec.OrderBy {
				require.ErrorIs(t, err, privacy.Deny)
				assert.Contains(t, err.Error(), fmt.Sprintf("%s of Employee.salary is not allowed", u))
				return
			}
			assert.ErrorIs(t, err, privacy.Skip)
		})
	}

	onFilter := privacy.OnUsage(privacy.AlwaysAllowRule(), exec.Filter)
	assert.ErrorIs(t, onFilter.EvalReference(ctx, ref(exec.Filter)), privacy.Allow)
	assert.ErrorIs(t, onFilter.EvalReference(ctx, ref(exec.Tuple)), privacy.Skip)
}

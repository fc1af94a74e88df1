package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanOrder(t *testing.T) {
	var got []string
	record := func(s string) StageFunc {
		return func(context.Context) error {
			got = append(got, s)
			return nil
		}
	}
	p := NewPlan()
	for _, s := range Stages() {
		p.Handle(s, record(s.String()))
	}
	p.Before(StageKeys, record("before keys"))
	p.After(StageKeys, record("after keys"))
	p.Handle(StageAspects, func(context.Context) error {
		got = append(got, "aspects")
		// Stages may extend later stages while running.
		p.Before(StageProperties, record("aspect applied"))
		p.After(StageAspects, record("after aspects"))
		return nil
	})

	require.NoError(t, p.Execute(context.Background()))
	assert.Equal(t, []string{
		"start", "aspects", "after aspects", "aspect applied", "properties", "inherit",
		"afterProperties", "before keys", "keys", "after keys", "functions", "modifiers",
		"relations", "afterRelations", "constraints", "actions", "end",
	}, got)
	assert.True(t, p.Executed())
	assert.Equal(t, Stage(-1), p.Current())
}

func TestPlanSingleUse(t *testing.T) {
	calls := 0
	p := NewPlan().Handle(StageStart, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, p.Execute(context.Background()))
	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already executed")
	assert.Equal(t, 1, calls)
}

func TestPlanFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []Stage
	p := NewPlan()
	for _, s := range Stages() {
		p.Handle(s, func(context.Context) error {
			ran = append(ran, s)
			if s == StageKeys {
				return boom
			}
			return nil
		})
	}
	err := p.Execute(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `stage "keys"`)
	assert.Equal(t, StageKeys, ran[len(ran)-1])
}

func TestPlanPastStage(t *testing.T) {
	p := NewPlan()
	p.Handle(StageRelations, func(context.Context) error {
		p.After(StageStart, func(context.Context) error { return nil })
		return nil
	})
	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `stage "start" which already ran`)

	assert.Panics(t, func() { NewPlan().Before(Stage(NumStages), nil) })
}

func TestPlanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewPlan().Handle(StageStart, func(context.Context) error { return nil }).Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "afterRelations", StageAfterRelations.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
	assert.Len(t, Stages(), 13)
}

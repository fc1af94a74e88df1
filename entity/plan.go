package entity

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage is one step of an entity build.
type Stage int

// Build stages, in execution order.
const (
	StageStart Stage = iota
	StageAspects
	StageProperties
	StageInherit
	StageAfterProperties
	StageKeys
	StageFunctions
	StageModifiers
	StageRelations
	StageAfterRelations
	StageConstraints
	StageActions
	StageEnd
)

// NumStages is the number of build stages.
const NumStages = int(StageEnd) + 1

var stageNames = [NumStages]string{
	StageStart:           "start",
	StageAspects:         "aspects",
	StageProperties:      "properties",
	StageInherit:         "inherit",
	StageAfterProperties: "afterProperties",
	StageKeys:            "keys",
	StageFunctions:       "functions",
	StageModifiers:       "modifiers",
	StageRelations:       "relations",
	StageAfterRelations:  "afterRelations",
	StageConstraints:     "constraints",
	StageActions:         "actions",
	StageEnd:             "end",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= NumStages {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages returns all stages in execution order.
func Stages() []Stage {
	ss := make([]Stage, NumStages)
	for i := range ss {
		ss[i] = Stage(i)
	}
	return ss
}

// StageFunc is a stage handler or callback.
type StageFunc func(ctx context.Context) error

// Plan runs the build stages of one entity. Each stage runs its before
// callbacks, its handler and its after callbacks. Callbacks may be added
// while the plan runs, for the running stage or a later one.
//
// A plan runs once. The first failing handler aborts the rest of it.
type Plan struct {
	handlers [NumStages]StageFunc
	before   [NumStages][]StageFunc
	after    [NumStages][]StageFunc

	current  Stage
	running  bool
	executed bool
	err      error
	logger   *slog.Logger
	entity   string
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{current: -1, logger: slog.Default()}
}

// Handle sets the handler of a stage, replacing the previous one.
func (p *Plan) Handle(s Stage, fn StageFunc) *Plan {
	if p.check(s, "handler") {
		p.handlers[s] = fn
	}
	return p
}

// Before adds a callback run before the handler of a stage.
func (p *Plan) Before(s Stage, fn StageFunc) *Plan {
	if p.check(s, "before callback") {
		p.before[s] = append(p.before[s], fn)
	}
	return p
}

// After adds a callback run after the handler of a stage.
func (p *Plan) After(s Stage, fn StageFunc) *Plan {
	if p.check(s, "after callback") {
		p.after[s] = append(p.after[s], fn)
	}
	return p
}

// check reports whether s can still run. Registering for a stage that
// already ran fails the plan.
func (p *Plan) check(s Stage, what string) bool {
	if s < 0 || int(s) >= NumStages {
		panic(fmt.Sprintf("entity: unknown build stage %d", int(s)))
	}
	if p.executed || (p.running && s < p.current) {
		if p.err == nil {
			p.err = fmt.Errorf("entity: %s added for stage %q which already ran", what, s)
		}
		return false
	}
	return true
}

// Current returns the running stage, or -1 outside Execute.
func (p *Plan) Current() Stage {
	if !p.running {
		return -1
	}
	return p.current
}

// Executed reports whether the plan ran.
func (p *Plan) Executed() bool { return p.executed }

// Execute runs every stage in order. A plan can run only once; the
// handlers are released afterwards.
func (p *Plan) Execute(ctx context.Context) error {
	if p.executed || p.running {
		return fmt.Errorf("entity: build plan of %q already executed", p.entity)
	}
	p.running = true
	defer p.dispose()
	for _, s := range Stages() {
		p.current = s
		if err := p.run(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) run(ctx context.Context, s Stage) error {
	p.logger.DebugContext(ctx, "build stage", "entity", p.entity, "stage", s.String())
	// Callback lists may grow while they run.
	for i := 0; i < len(p.before[s]); i++ {
		if err := p.call(ctx, s, p.before[s][i]); err != nil {
			return err
		}
	}
	if h := p.handlers[s]; h != nil {
		if err := p.call(ctx, s, h); err != nil {
			return err
		}
	}
	for i := 0; i < len(p.after[s]); i++ {
		if err := p.call(ctx, s, p.after[s][i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) call(ctx context.Context, s Stage, fn StageFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return fmt.Errorf("entity: stage %q: %w", s, err)
	}
	if p.err != nil {
		return p.err
	}
	return nil
}

func (p *Plan) dispose() {
	p.running = false
	p.executed = true
	p.handlers = [NumStages]StageFunc{}
	p.before = [NumStages][]StageFunc{}
	p.after = [NumStages][]StageFunc{}
}

package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/entmeta/dialect"
)

// DefaultSlowThreshold is the duration above which a statement is slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// Stats is a snapshot of the statements run through a StatsDriver.
type Stats struct {
	Queries  int64
	Slow     int64
	Errors   int64
	Duration time.Duration
}

// Avg returns the mean statement duration.
func (s Stats) Avg() time.Duration {
	if s.Queries == 0 {
		return 0
	}
	return s.Duration / time.Duration(s.Queries)
}

func (s Stats) String() string {
	return fmt.Sprintf("queries=%d slow=%d errors=%d avg=%s", s.Queries, s.Slow, s.Errors, s.Avg())
}

// StatsDriver counts the statements of one storage and logs the slow ones.
type StatsDriver struct {
	dialect.Driver
	storage   string
	threshold time.Duration
	logger    *slog.Logger

	queries, slow, errs, nanos atomic.Int64
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithStatsLogger sets the logger of slow statements.
func WithStatsLogger(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStorageName labels the logged statements with a storage name.
func WithStorageName(name string) StatsOption {
	return func(s *StatsDriver) { s.storage = name }
}

// NewStatsDriver wraps drv.
//
//	drv, _ := sql.Open("sqlite", "file:meta.db")
//	rows, err := sql.NewExecutor(sql.NewStatsDriver(drv, sql.WithStorageName("main"))).Fetch(ctx, q)
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, threshold: DefaultSlowThreshold, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counters.
func (d *StatsDriver) Stats() Stats {
	return Stats{
		Queries:  d.queries.Load(),
		Slow:     d.slow.Load(),
		Errors:   d.errs.Load(),
		Duration: time.Duration(d.nanos.Load()),
	}
}

// Reset zeroes the counters.
func (d *StatsDriver) Reset() {
	for _, c := range []*atomic.Int64{&d.queries, &d.slow, &d.errs, &d.nanos} {
		c.Store(0)
	}
}

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration { return d.threshold }

// Query implements dialect.Driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.queries.Add(1)
	d.record(ctx, query, args, time.Since(start), err)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, took time.Duration, err error) {
	d.nanos.Add(int64(took))
	if err != nil {
		d.errs.Add(1)
	}
	if took <= d.threshold {
		return
	}
	d.slow.Add(1)
	attrs := []any{"duration", took, "query", query, "args", args}
	if d.storage != "" {
		attrs = append(attrs, "storage", d.storage)
	}
	d.logger.WarnContext(ctx, "slow query detected", attrs...)
}

var _ dialect.Driver = (*StatsDriver)(nil)

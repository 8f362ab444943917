package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ExecStats holds statement execution statistics.
type ExecStats struct {
	// TotalExecs is the number of Exec statements executed.
	TotalExecs atomic.Int64
	// TotalQueries is the number of Query statements executed.
	TotalQueries atomic.Int64
	// TotalDuration is the total time spent in the database.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowStatements is the count of statements exceeding the slow threshold.
	SlowStatements atomic.Int64
	// Aborted is the count of statements stopped by a customizer.
	Aborted atomic.Int64
	// Errors is the count of statements the database rejected.
	Errors atomic.Int64

	mu            sync.RWMutex
	slowThreshold time.Duration
	slowHook      SlowStatementHook
}

// SlowStatementHook is called when a slow statement is detected.
type SlowStatementHook func(ctx context.Context, statement string, args []any, duration time.Duration)

// StatsOption configures ExecStats.
type StatsOption func(*ExecStats)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *ExecStats) {
		s.slowThreshold = d
	}
}

// WithSlowStatementHook sets a callback for slow statements.
func WithSlowStatementHook(hook SlowStatementHook) StatsOption {
	return func(s *ExecStats) {
		s.slowHook = hook
	}
}

// WithSlowStatementLog logs slow statements to logger.
// This is a convenience wrapper around WithSlowStatementHook.
func WithSlowStatementLog(logger *slog.Logger) StatsOption {
	return WithSlowStatementHook(func(ctx context.Context, statement string, args []any, duration time.Duration) {
		logger.WarnContext(ctx, "slow statement detected", "duration", duration, "statement", statement, "args", args)
	})
}

// NewExecStats returns empty statistics.
//
// Example:
//
//	stats := sql.NewExecStats(
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowStatementLog(logger),
//	)
//	exec := sql.NewExecutor(drv, sql.WithStats(stats))
//
//	// Later, check statistics:
//	fmt.Println(stats.Stats())
func NewExecStats(opts ...StatsOption) *ExecStats {
	s := &ExecStats{slowThreshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a snapshot of the current statistics.
func (s *ExecStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalExecs:     s.TotalExecs.Load(),
		TotalQueries:   s.TotalQueries.Load(),
		TotalDuration:  time.Duration(s.TotalDuration.Load()),
		SlowStatements: s.SlowStatements.Load(),
		Aborted:        s.Aborted.Load(),
		Errors:         s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *ExecStats) Reset() {
	s.TotalExecs.Store(0)
	s.TotalQueries.Store(0)
	s.TotalDuration.Store(0)
	s.SlowStatements.Store(0)
	s.Aborted.Store(0)
	s.Errors.Store(0)
}

// SlowThreshold returns the current slow statement threshold.
func (s *ExecStats) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (s *ExecStats) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

func (s *ExecStats) record(ctx context.Context, statement string, args []any, duration time.Duration, err error, isQuery bool) {
	if s == nil {
		return
	}
	if isQuery {
		s.TotalQueries.Add(1)
	} else {
		s.TotalExecs.Add(1)
	}
	s.TotalDuration.Add(int64(duration))

	if err != nil {
		s.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.SlowStatements.Add(1)
		if hook != nil {
			hook(ctx, statement, args, duration)
		}
	}
}

func (s *ExecStats) abort() {
	if s != nil {
		s.Aborted.Add(1)
	}
}

// StatsSnapshot is a point-in-time snapshot of execution statistics.
type StatsSnapshot struct {
	TotalExecs     int64
	TotalQueries   int64
	TotalDuration  time.Duration
	SlowStatements int64
	Aborted        int64
	Errors         int64
}

// AvgDuration returns the average statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"execs=%d queries=%d duration=%s avg=%s slow=%d aborted=%d errors=%d",
		s.TotalExecs, s.TotalQueries, s.TotalDuration, s.AvgDuration(),
		s.SlowStatements, s.Aborted, s.Errors,
	)
}

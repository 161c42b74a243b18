// Package sqlexec executes statements against the backend session with capacity-aware retries.
// The backend caps how much work one session may run at once; when it pushes back, the
// Executor waits, throws the session away so a fresh one is opened, and tries again.
//
// Key features include:
//   - Bounded, strictly sequential retries with a linear wait between attempts
//   - Session invalidation before every retry
//   - A per-session in-flight ceiling
//   - JSON result formatting with proper type handling for pgx values
package sqlexec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/session"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxAttempts is the total number of tries for one statement, first try included.
	DefaultMaxAttempts = 3
	// DefaultRetryUnit is multiplied by (1 + attempt index) to get the wait before a retry.
	DefaultRetryUnit = time.Second
)

// Result represents a normalized SQL result for JSON marshaling.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Scalar returns the first column of the first row as text.
// ok is false when there are no rows or the value is NULL.
func (r *Result) Scalar() (string, bool) {
	if r == nil || len(r.Rows) == 0 || len(r.Rows[0]) == 0 || r.Rows[0][0] == nil {
		return "", false
	}
	switch v := r.Rows[0][0].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// MarshalJSON implements custom JSON marshaling for Result to handle pgx types properly.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	a := alias(r)
	if a.Columns == nil {
		a.Columns = []string{}
	}
	a.Rows = make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		a.Rows[i] = make([]any, len(row))
		for j, val := range row {
			a.Rows[i][j] = jsonValue(val)
		}
	}
	return json.Marshal(a)
}

// jsonValue converts pgx values that encoding/json renders poorly.
func jsonValue(val any) any {
	switch v := val.(type) {
	case []byte:
		if len(v) == 16 {
			return formatUUID(v)
		}
		return fmt.Sprintf("\\x%x", v)
	case [16]byte:
		return formatUUID(v[:])
	default:
		return v
	}
}

func formatUUID(v []byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", v[0:4], v[4:6], v[6:8], v[8:10], v[10:16])
}

// Sessions is the subset of session.Manager the Executor needs.
type Sessions interface {
	Handle(ctx context.Context) (session.Handle, error)
	Invalidate(ctx context.Context)
}

// Executor runs statements through the current session.
type Executor struct {
	sessions    Sessions
	maxAttempts int
	unit        time.Duration
	inflight    *semaphore.Weighted
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts sets the total number of tries per statement. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithRetryUnit sets the base wait between attempts.
func WithRetryUnit(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.unit = d
		}
	}
}

// WithConcurrency caps how many statements may be in flight on the session at once.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.inflight = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor over sessions.
func New(sessions Sessions, opts ...Option) *Executor {
	e := &Executor{
		sessions:    sessions,
		maxAttempts: DefaultMaxAttempts,
		unit:        DefaultRetryUnit,
		inflight:    semaphore.NewWeighted(1),
		logger:      zap.NewNop(),
		sleep:       sleepWithCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs sql with optional bound params and returns every row.
//
// Capacity errors are retried up to the attempt limit; once the limit is spent the error
// is a *errors.E of kind BackendBusy. Token limit errors come back as kind TokenLimit.
// Any other backend error is returned unchanged on the first failure.
func (e *Executor) Execute(ctx context.Context, sql string, params ...any) (*Result, error) {
	if err := e.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.inflight.Release(1)

	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := e.run(ctx, sql, params)
		if err == nil {
			return &Result{Columns: rows.Columns, Rows: rows.Values}, nil
		}
		if IsTokenLimitError(err.Error()) {
			return nil, cqerrors.Wrap(cqerrors.TokenLimit, "model token limit exceeded", err)
		}
		if !IsTransient(err) {
			return nil, err
		}

		lastErr = err
		if attempt == e.maxAttempts-1 {
			break
		}

		wait := time.Duration(1+attempt) * e.unit
		e.logger.Debug("backend at capacity, retrying with a fresh session",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
		e.sessions.Invalidate(ctx)
	}

	e.logger.Warn("backend still busy, giving up", zap.Int("attempts", e.maxAttempts), zap.Error(lastErr))
	return nil, cqerrors.Wrap(cqerrors.BackendBusy,
		fmt.Sprintf("backend busy after %d attempts", e.maxAttempts), lastErr)
}

func (e *Executor) run(ctx context.Context, sql string, params []any) (*session.Rows, error) {
	h, err := e.sessions.Handle(ctx)
	if err != nil {
		return nil, err
	}
	return h.Query(ctx, sql, params...)
}

// sleepWithCtx waits for d or until ctx is done, whichever comes first.
func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

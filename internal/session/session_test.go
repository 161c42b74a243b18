// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	cqerrors "cortexq/cli/internal/errors"
)

type fakeHandle struct {
	id      int
	closed  bool
	created time.Time
}

func (f *fakeHandle) Query(ctx context.Context, sql string, args ...any) (*Rows, error) {
	return &Rows{}, nil
}
func (f *fakeHandle) Close(ctx context.Context) error { f.closed = true; return nil }
func (f *fakeHandle) Alive() bool                     { return !f.closed }
func (f *fakeHandle) CreatedAt() time.Time            { return f.created }

func countingDialer(handles *[]*fakeHandle) Dialer {
	return func(ctx context.Context) (Handle, error) {
		h := &fakeHandle{id: len(*handles) + 1, created: time.Now()}
		*handles = append(*handles, h)
		return h, nil
	}
}

func TestManagerMemoizesHandle(t *testing.T) {
	var handles []*fakeHandle
	m := NewManager(countingDialer(&handles), nil)
	ctx := context.Background()

	first, err := m.Handle(ctx)
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	second, err := m.Handle(ctx)
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if first != second {
		t.Error("expected the same handle on repeated calls")
	}
	if len(handles) != 1 {
		t.Errorf("dialed %d times, want 1", len(handles))
	}
}

func TestManagerInvalidate(t *testing.T) {
	var handles []*fakeHandle
	m := NewManager(countingDialer(&handles), nil)
	ctx := context.Background()

	first, _ := m.Handle(ctx)
	m.Invalidate(ctx)

	if !handles[0].closed {
		t.Error("invalidated handle should be closed")
	}

	second, err := m.Handle(ctx)
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if first == second {
		t.Error("expected a fresh handle after Invalidate")
	}
	if got := m.Opened(); got != 2 {
		t.Errorf("Opened() = %d, want 2", got)
	}
}

func TestManagerInvalidateWithoutHandle(t *testing.T) {
	var handles []*fakeHandle
	m := NewManager(countingDialer(&handles), nil)
	m.Invalidate(context.Background())
	if len(handles) != 0 {
		t.Errorf("Invalidate should not dial, dialed %d times", len(handles))
	}
}

func TestManagerReplacesDeadHandle(t *testing.T) {
	var handles []*fakeHandle
	m := NewManager(countingDialer(&handles), nil)
	ctx := context.Background()

	h, _ := m.Handle(ctx)
	_ = h.Close(ctx)

	next, err := m.Handle(ctx)
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if next == h {
		t.Error("a closed handle must never be returned")
	}
}

func TestManagerDialFailure(t *testing.T) {
	cause := errors.New("connection refused")
	m := NewManager(func(ctx context.Context) (Handle, error) { return nil, cause }, nil)

	_, err := m.Handle(context.Background())
	if !cqerrors.IsKind(err, cqerrors.SessionFailed) {
		t.Errorf("expected SessionFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("dial error should be wrapped")
	}
}

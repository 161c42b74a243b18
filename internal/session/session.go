// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the single backend session used by the completion layer.
// Opening a session is an authenticated network round trip, so the Manager memoizes
// one Handle and only replaces it when a caller explicitly invalidates it.
package session

import (
	"context"
	"sync"
	"time"

	cqerrors "cortexq/cli/internal/errors"

	"go.uber.org/zap"
)

// Rows is a raw result set: column names plus row values in column order.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Handle is an open backend session.
type Handle interface {
	// Query runs one statement and returns all of its rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)
	// Close releases the session. Closing twice is a no-op.
	Close(ctx context.Context) error
	// Alive reports whether the session has not been closed.
	Alive() bool
	// CreatedAt is when the session was opened.
	CreatedAt() time.Time
}

// Dialer opens a new Handle.
type Dialer func(ctx context.Context) (Handle, error)

// Manager hands out the current Handle, creating it lazily.
type Manager struct {
	dial   Dialer
	logger *zap.Logger

	mu      sync.Mutex
	current Handle
	opened  int
}

// NewManager creates a Manager that opens sessions with dial.
func NewManager(dial Dialer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dial: dial, logger: logger}
}

// Handle returns the live session, opening one if none exists or the previous one died.
func (m *Manager) Handle(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Alive() {
		return m.current, nil
	}
	m.current = nil

	h, err := m.dial(ctx)
	if err != nil {
		return nil, cqerrors.Wrap(cqerrors.SessionFailed, "open backend session", err)
	}
	m.current = h
	m.opened++
	m.logger.Debug("backend session opened", zap.Int("sessions_opened", m.opened))
	return h, nil
}

// Invalidate discards the current session unconditionally. The next Handle call opens a fresh one.
func (m *Manager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	h := m.current
	m.current = nil
	m.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Close(ctx); err != nil {
		m.logger.Debug("closing invalidated session failed", zap.Error(err))
	}
	m.logger.Debug("backend session invalidated", zap.Duration("age", time.Since(h.CreatedAt())))
}

// Close releases the current session, if any.
func (m *Manager) Close(ctx context.Context) {
	m.Invalidate(ctx)
}

// Opened returns how many sessions this Manager has opened so far.
func (m *Manager) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
)

// pgHandle is a Handle backed by a single pgx connection.
type pgHandle struct {
	conn    *pgx.Conn
	created time.Time
	closed  atomic.Bool
}

// PgxDialer returns a Dialer that opens a pgx connection to dsn.
// The connection must answer a ping before it is handed out.
func PgxDialer(dsn string) Dialer {
	return func(ctx context.Context) (Handle, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := conn.Ping(ctx); err != nil {
			_ = conn.Close(ctx)
			return nil, err
		}
		return &pgHandle{conn: conn, created: time.Now()}, nil
	}
}

func (h *pgHandle) Query(ctx context.Context, sql string, args ...any) (*Rows, error) {
	rows, err := h.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	out := &Rows{Columns: make([]string, len(fds))}
	for i, fd := range fds {
		out.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *pgHandle) Close(ctx context.Context) error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.conn.Close(ctx)
}

func (h *pgHandle) Alive() bool {
	return !h.closed.Load() && !h.conn.IsClosed()
}

func (h *pgHandle) CreatedAt() time.Time { return h.created }

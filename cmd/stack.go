// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"cortexq/cli/internal/completion"
	"cortexq/cli/internal/dsn"
	"cortexq/cli/internal/keychain"
	"cortexq/cli/internal/logging"
	"cortexq/cli/internal/repair"
	"cortexq/cli/internal/session"
	"cortexq/cli/internal/sqlexec"

	"go.uber.org/zap"
)

// openStore opens the keychain holding a saved DSN.
var openStore = func() (dsn.Store, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return nil, err
	}
	return km, nil
}

// stack holds the request components for one command invocation.
type stack struct {
	sessions *session.Manager
	exec     *sqlexec.Executor
	client   *completion.Client
	pipeline *repair.Pipeline
}

// openStack resolves the DSN and builds the stack. No connection is made until the
// first statement runs.
func openStack() (*stack, error) {
	store, err := openStore()
	if err != nil {
		logger.Debug("secure storage unavailable", zap.Error(err))
	}

	raw, source, err := dsn.Resolve(store)
	if err != nil {
		return nil, err
	}
	normalized, err := dsn.Parse(raw)
	if err != nil {
		return nil, err
	}
	logger.Debug("database connection resolved",
		zap.String("source", string(source)),
		logging.Redacted("dsn", normalized))

	sessions := session.NewManager(session.PgxDialer(normalized), logger)
	exec := sqlexec.New(sessions,
		sqlexec.WithMaxAttempts(cfg.Retry.MaxAttempts),
		sqlexec.WithRetryUnit(cfg.Retry.Unit()),
		sqlexec.WithConcurrency(cfg.Concurrency),
		sqlexec.WithLogger(logger))
	client := completion.New(exec,
		completion.WithFunction(cfg.Completion.Function),
		completion.WithLogger(logger))

	return &stack{
		sessions: sessions,
		exec:     exec,
		client:   client,
		pipeline: repair.New(client, repair.WithLogger(logger)),
	}, nil
}

func (s *stack) close() {
	s.sessions.Close(context.Background())
}

// modelOr returns model, or the configured default when model is blank.
func modelOr(model string) string {
	if model != "" {
		return model
	}
	return cfg.Completion.Model
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package completion issues natural-language completion calls through the SQL backend.
// A call is one SELECT of the platform's completion function with the model identifier
// and the prompt embedded as string literals; the single text column of the single row
// is the model's answer.
package completion

import (
	"context"
	"fmt"
	"strings"

	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/sqlexec"

	"go.uber.org/zap"
)

const (
	// DefaultFunction is the completion function invoked when none is configured.
	DefaultFunction = "SNOWFLAKE.CORTEX.COMPLETE"
	// DefaultModel is the model configured when the user has not chosen one.
	DefaultModel = "claude-3-5-sonnet"
)

// KnownModels are model identifiers offered to users. Any other identifier is passed
// through untouched; the backend decides whether it exists.
var KnownModels = []string{
	"claude-3-5-sonnet",
	"reka-flash",
	"mistral-large",
	"llama3-70b",
}

// Request is one completion invocation.
type Request struct {
	ModelID    string
	PromptText string
}

// Command renders the SQL statement that runs r through fn.
func (r Request) Command(fn string) string {
	return fmt.Sprintf("SELECT %s('%s', '%s') AS response", fn, EscapeLiteral(r.ModelID), EscapeLiteral(r.PromptText))
}

// EscapeLiteral makes s safe to place between single quotes in a SQL statement.
// Quotes are doubled and NUL bytes, which the wire protocol rejects, are dropped.
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "'", "''")
}

// Querier runs one statement. *sqlexec.Executor satisfies it.
type Querier interface {
	Execute(ctx context.Context, sql string, params ...any) (*sqlexec.Result, error)
}

// Client sends completion requests.
type Client struct {
	exec     Querier
	function string
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithFunction overrides the SQL completion function name.
func WithFunction(name string) Option {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.function = strings.TrimSpace(name)
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client that executes through exec.
func New(exec Querier, opts ...Option) *Client {
	c := &Client{exec: exec, function: DefaultFunction, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends prompt to model and returns the raw text answer.
// model is sent as given. A successful call that yields no row, a NULL, or a blank answer
// is reported as kind EmptyResponse.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	req := Request{ModelID: model, PromptText: prompt}

	c.logger.Debug("completion request",
		zap.String("model", model),
		zap.Int("prompt_chars", len(prompt)))

	res, err := c.exec.Execute(ctx, req.Command(c.function))
	if err != nil {
		return "", err
	}
	text, ok := res.Scalar()
	if !ok || strings.TrimSpace(text) == "" {
		return "", cqerrors.New(cqerrors.EmptyResponse, "the model returned an empty response")
	}

	c.logger.Debug("completion response", zap.String("model", model), zap.Int("response_chars", len(text)))
	return text, nil
}

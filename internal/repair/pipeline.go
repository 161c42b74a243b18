// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package repair turns a prompt into a structured result, asking the model to fix its own
// output once when the first answer cannot be parsed.
//
// The flow for a JSON request is:
//
//	complete(prompt) -> parse -> done
//	                      \-> complete(repair prompt) -> parse -> done | parse_failure
//
// An empty answer at either completion step ends the request with empty_response; there
// is nothing to repair. The repair pass runs at most once per request.
package repair

import (
	"context"
	"fmt"
	"strings"

	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/jsonextract"

	"go.uber.org/zap"
)

// Status is the closed set of outcomes a request can end in.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusEmptyResponse Status = "empty_response"
	StatusParseFailure  Status = "parse_failure"
	StatusBackendBusy   Status = "backend_busy"
)

// Completer sends one prompt to a model and returns the raw answer.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Request is one caller request.
type Request struct {
	Prompt string
	Model  string
	// ExpectJSON asks for a parsed structured value. When false the raw text is returned as-is.
	ExpectJSON bool
	// Quiet lowers repair-pass warnings to debug level.
	Quiet bool
}

// Result is the outcome of a request.
type Result struct {
	Status Status
	// Value is the parsed payload; set only for successful JSON requests.
	Value any
	// Text is the last raw text seen: the answer on success, or the unparsable
	// text on parse failure so the caller can show it.
	Text string
	// Attempts counts completion calls made for this request.
	Attempts int
}

// OK reports whether the request succeeded.
func (r *Result) OK() bool { return r != nil && r.Status == StatusSuccess }

// Pipeline runs requests through a Completer.
type Pipeline struct {
	client Completer
	parse  func(string) (any, error)
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParser replaces the structured output parser.
func WithParser(parse func(string) (any, error)) Option {
	return func(p *Pipeline) {
		if parse != nil {
			p.parse = parse
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline over client.
func New(client Completer, opts ...Option) *Pipeline {
	p := &Pipeline{client: client, parse: jsonextract.Parse, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RepairPrompt builds the prompt that asks the model to correct text into valid JSON.
func RepairPrompt(text string) string {
	return "Fix this JSON and return ONLY the corrected JSON with no other text:\n\n" + text + "\n\nReturn ONLY valid JSON:"
}

// Request runs req. Expected failures are reported through Result.Status; the error is
// non-nil only for unclassified backend errors and context cancellation.
func (p *Pipeline) Request(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}

	text, done, err := p.complete(ctx, req.Prompt, req.Model, res)
	if done || err != nil {
		return res, err
	}
	if !req.ExpectJSON {
		res.Status = StatusSuccess
		res.Text = text
		return res, nil
	}

	if v, perr := p.parse(text); perr == nil {
		res.Status = StatusSuccess
		res.Value = v
		res.Text = text
		return res, nil
	}

	p.warn(req.Quiet, "initial JSON parsing failed, asking the model to repair its output",
		zap.Int("response_chars", len(text)))

	res.Text = text
	repaired, done, err := p.complete(ctx, RepairPrompt(text), req.Model, res)
	if done || err != nil {
		if res.Status == StatusEmptyResponse {
			p.warn(req.Quiet, "repair attempt returned an empty response")
		}
		return res, err
	}

	// The model does not always obey "ONLY JSON", so the full extractor runs again.
	repaired = strings.TrimSpace(repaired)
	v, perr := p.parse(repaired)
	if perr != nil {
		p.warn(req.Quiet, "JSON repair failed, no valid JSON in repaired output",
			zap.Int("response_chars", len(repaired)))
		res.Status = StatusParseFailure
		res.Text = repaired
		return res, nil
	}

	res.Status = StatusSuccess
	res.Value = v
	res.Text = repaired
	return res, nil
}

// complete makes one completion call and records it on res. done is true when the call
// ended the request with a terminal status already set on res.
func (p *Pipeline) complete(ctx context.Context, prompt, model string, res *Result) (text string, done bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", true, err
	}
	res.Attempts++
	text, err = p.client.Complete(ctx, prompt, model)
	if err == nil {
		return text, false, nil
	}

	switch cqerrors.KindOf(err) {
	case cqerrors.EmptyResponse:
		res.Status = StatusEmptyResponse
		return "", true, nil
	case cqerrors.BackendBusy:
		res.Status = StatusBackendBusy
		return "", true, nil
	default:
		return "", true, fmt.Errorf("completion request: %w", err)
	}
}

func (p *Pipeline) warn(quiet bool, msg string, fields ...zap.Field) {
	if quiet {
		p.logger.Debug(msg, fields...)
		return
	}
	p.logger.Warn(msg, fields...)
}

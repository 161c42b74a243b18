// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package jsonextract recovers a JSON object or array from free-form model output.
//
// Models wrap their payload in prose, markdown fences, or trailing commentary, and may
// emit several brace-delimited fragments. Parse tries progressively looser strategies
// and returns the first payload that decodes:
//  1. a depth-counted bracket walk from the first '['
//  2. the same walk from the first '{'
//  3. each trimmed line that starts with '[' or '{', decoded on its own
package jsonextract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	cqerrors "cortexq/cli/internal/errors"
)

// ParseError is returned when no strategy produced valid JSON. Text is the input as given.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return "no valid JSON object or array found in model output"
}

func (e *ParseError) Unwrap() error {
	return cqerrors.New(cqerrors.ParseFailure, e.Error())
}

// Parse extracts the structured payload from text.
// The result is a map[string]any or []any; numbers decode as json.Number.
func Parse(text string) (any, error) {
	if v, ok := scanBalanced(text, '[', ']'); ok {
		return v, nil
	}
	if v, ok := scanBalanced(text, '{', '}'); ok {
		return v, nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "{") {
			continue
		}
		if v, err := decode(line); err == nil {
			return v, nil
		}
	}

	return nil, &ParseError{Text: text}
}

// scanBalanced finds the first open byte, walks forward until the open/close count
// returns to zero and decodes that span. Brackets inside JSON strings are not counted.
// Only the first candidate of each kind is tried.
func scanBalanced(text string, open, closer byte) (any, bool) {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				v, err := decode(text[start : i+1])
				return v, err == nil
			}
		}
	}
	return nil, false
}

// decode parses s as exactly one JSON object or array.
func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, nil
	default:
		return nil, errors.New("JSON value is not an object or array")
	}
}

// Compact re-encodes a parsed value without insignificant whitespace.
func Compact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"cortexq/cli/internal/repair"
)

// Process exit codes, one per request outcome.
const (
	exitOK            = 0
	exitFailure       = 1
	exitEmptyResponse = 2
	exitParseFailure  = 3
	exitBackendBusy   = 4
	exitTokenLimit    = 5
)

// exitError carries a process exit code once the message has already been shown.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(status repair.Status) int {
	switch status {
	case repair.StatusSuccess:
		return exitOK
	case repair.StatusEmptyResponse:
		return exitEmptyResponse
	case repair.StatusParseFailure:
		return exitParseFailure
	case repair.StatusBackendBusy:
		return exitBackendBusy
	default:
		return exitFailure
	}
}

func outcomeError(status repair.Status) error {
	return &exitError{code: exitCode(status), msg: "request ended with " + string(status)}
}

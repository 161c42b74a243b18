// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"cortexq/cli/internal/repair"

	"github.com/pterm/pterm"
)

// rawPreviewChars bounds how much of an unparsable answer is echoed back.
const rawPreviewChars = 500

// FormatOutcome renders a non-success request outcome for the terminal. raw is the last
// text the model produced, shown as a preview for parse failures. Success yields "".
func FormatOutcome(status repair.Status, raw string) string {
	var builder strings.Builder

	switch status {
	case repair.StatusSuccess:
		return ""

	case repair.StatusEmptyResponse:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Empty Response"))
		builder.WriteString("\n\n")
		builder.WriteString("The model returned an empty response.\n")
		builder.WriteString("Try rephrasing the prompt or choosing another model with --model.\n")

	case repair.StatusParseFailure:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Invalid JSON"))
		builder.WriteString("\n\n")
		builder.WriteString("The model did not return valid JSON, even after one repair attempt.\n")
		if strings.TrimSpace(raw) != "" {
			builder.WriteString("\n")
			builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Raw response: " + Truncate(Mask(raw), rawPreviewChars)))
			builder.WriteString("\n")
		}

	case repair.StatusBackendBusy:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("Backend Busy"))
		builder.WriteString("\n\n")
		builder.WriteString("The backend stayed at capacity across every retry.\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please wait a moment and try again"))
		builder.WriteString("\n")

	default:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Request Failed"))
		builder.WriteString("\n\n")
		builder.WriteString("Unexpected outcome: " + string(status) + "\n")
	}

	return builder.String()
}

// FormatTokenLimit renders the message for prompts the backend rejected as too long.
func FormatTokenLimit(errMsg string) string {
	var builder strings.Builder
	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Prompt Too Long"))
	builder.WriteString("\n\n")
	builder.WriteString("The prompt exceeds the model's token limit. Shorten it and try again.\n")
	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
		builder.WriteString("\n")
	}
	return builder.String()
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal hides secrets the user typed at an interactive prompt.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of the terminal behind f, or 80 when unknown.
func Width(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// LinesUsed returns how many rows n characters occupy at the given width, plus the
// empty row the cursor sits on after Enter.
func LinesUsed(n, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	rows := (n + width - 1) / width
	if rows < 1 {
		rows = 1
	}
	return rows + 1
}

// EraseLines clears the current row and the lines-1 rows above it, leaving the cursor
// at the start of the topmost one.
func EraseLines(w io.Writer, lines int) {
	for i := 0; i < lines; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < lines-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// ScrubPrompt removes an echoed prompt and answer of n characters from stdout.
// Nothing is written when stdout is not a terminal.
func ScrubPrompt(n int) {
	if !IsInteractive(os.Stdout) {
		return
	}
	EraseLines(os.Stdout, LinesUsed(n, Width(os.Stdout)))
}

// Package terminal provides small terminal helpers for interactive prompts.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// Width returns the width of stdout, or 80 when it is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return defaultWidth
}

// ClearPreviousLines erases a prompt of textLength characters from stdout
// after the user pressed Enter.
func ClearPreviousLines(textLength int) {
	clearLines(os.Stdout, linesToClear(textLength, Width()))
}

// linesToClear counts the wrapped lines of the text plus the empty line the
// cursor sits on after Enter.
func linesToClear(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	lines := (textLength + width - 1) / width
	if lines < 1 {
		lines = 1
	}
	return lines + 1
}

func clearLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

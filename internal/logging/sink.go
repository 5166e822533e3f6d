// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"opensearchsql/cli/internal/xdg"
)

// LogFileName is the gateway log written under the XDG state directory.
const LogFileName = "sql_library.log"

// ParseLevel maps a config level name to a pterm log level. Unknown names map to info.
func ParseLevel(s string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "none", "disabled":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// NewLogger returns a JSON-lines logger writing to w.
func NewLogger(w io.Writer, level pterm.LogLevel) *pterm.Logger {
	if level == pterm.LogLevelDisabled {
		w = io.Discard
	}
	return pterm.DefaultLogger.
		WithWriter(w).
		WithFormatter(pterm.LogFormatterJSON).
		WithTime(true).
		WithLevel(level)
}

// Discard returns a logger that drops everything.
func Discard() *pterm.Logger {
	return NewLogger(io.Discard, pterm.LogLevelDisabled)
}

// OpenSink opens (append mode) the gateway log in the XDG state directory and
// returns a logger writing to it. The returned closer closes the file.
func OpenSink(level string) (*pterm.Logger, io.Closer, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, nil, err
	}
	return OpenSinkAt(filepath.Join(dir, LogFileName), level)
}

// OpenSinkAt is OpenSink with an explicit file path.
func OpenSinkAt(path string, level string) (*pterm.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f, ParseLevel(level)), f, nil
}

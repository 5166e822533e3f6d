// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package endpoint parses the cluster endpoint and credential strings accepted
// on the command line: "[protocol://]host[:port]" and "user:password".
package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a parsed cluster address.
type Endpoint struct {
	Protocol string
	Host     string
	Port     int
}

// Default is the endpoint used when nothing is configured.
var Default = Endpoint{Protocol: "http", Host: "localhost", Port: 9200}

// URL returns protocol://host:port.
func (e Endpoint) URL() string {
	return e.Protocol + "://" + e.HostPort()
}

// HostPort returns host:port, bracketing IPv6 literals.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string { return e.URL() }

// ParseError represents an error that occurred during endpoint parsing
type ParseError struct {
	Input  string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid endpoint: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid endpoint: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(input, reason, hint string) *ParseError {
	return &ParseError{Input: input, Reason: reason, Hint: hint}
}

// Parse reads "[protocol://]host[:port]". Parts left out come from defaults;
// an empty input returns defaults unchanged. A trailing path is ignored.
func Parse(raw string, defaults Endpoint) (Endpoint, error) {
	ep := defaults
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ep, nil
	}

	scheme, rest := StripScheme(raw)
	if scheme != "" {
		scheme = strings.ToLower(scheme)
		if scheme != "http" && scheme != "https" {
			return Endpoint{}, NewParseError(raw, fmt.Sprintf("unsupported protocol %q", scheme), "use http:// or https://")
		}
		ep.Protocol = scheme
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}

	host, portStr, hasPort := splitHostPort(rest)
	if host == "" {
		return Endpoint{}, NewParseError(raw, "missing host", "format should be [http|https://]host[:port]")
	}
	ep.Host = host

	if hasPort {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, NewParseError(raw, "Invalid port: "+portStr, "port must be a number between 1 and 65535")
		}
		ep.Port = port
	}
	return ep, nil
}

// StripScheme splits "scheme://rest". scheme is empty when there is no "://".
func StripScheme(raw string) (scheme, rest string) {
	if before, after, ok := strings.Cut(raw, "://"); ok {
		return before, after
	}
	return "", raw
}

// splitHostPort splits on the first colon, or after a bracketed IPv6 literal.
func splitHostPort(s string) (host, port string, hasPort bool) {
	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", "", false
		}
		host = s[1:end]
		if tail := s[end+1:]; strings.HasPrefix(tail, ":") {
			return host, tail[1:], true
		}
		return host, "", false
	}
	host, port, hasPort = strings.Cut(s, ":")
	return host, port, hasPort
}

// SplitCredentials splits "user:password" on the first colon, so passwords
// may contain colons. ok is false when there is no colon; user is then the
// whole input.
func SplitCredentials(s string) (user, password string, ok bool) {
	return strings.Cut(s, ":")
}

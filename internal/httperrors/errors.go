// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies HTTP transport errors. The cluster verifier
// uses it to tell certificate failures apart from protocol mismatches,
// timeouts and plain unreachable hosts, each of which gets its own message.
package httperrors

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Class is the category of a transport failure.
type Class int

const (
	ClassOther Class = iota
	ClassCertificate
	ClassProtocolMismatch
	ClassTimeout
	ClassDNS
	ClassConnectionRefused
)

func (c Class) String() string {
	switch c {
	case ClassCertificate:
		return "certificate"
	case ClassProtocolMismatch:
		return "protocol_mismatch"
	case ClassTimeout:
		return "timeout"
	case ClassDNS:
		return "dns"
	case ClassConnectionRefused:
		return "connection_refused"
	default:
		return "other"
	}
}

// Classify returns the class of a transport error. Certificate and protocol
// checks run first because TLS failures can also surface as net.OpError.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassOther
	case IsCertificateError(err):
		return ClassCertificate
	case IsProtocolMismatch(err):
		return ClassProtocolMismatch
	case IsTimeoutError(err):
		return ClassTimeout
	case IsDNSError(err):
		return ClassDNS
	case IsConnectionRefusedError(err):
		return ClassConnectionRefused
	default:
		return ClassOther
	}
}

// IsCertificateError reports whether err is a TLS certificate validation failure.
func IsCertificateError(err error) bool {
	if err == nil {
		return false
	}

	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		return true
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "x509:") ||
		strings.Contains(errStr, "certificate signed by unknown authority") ||
		strings.Contains(errStr, "failed to verify certificate")
}

// IsProtocolMismatch reports whether https was spoken to a plain http server.
func IsProtocolMismatch(err error) bool {
	if err == nil {
		return false
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "server gave http response to https client") ||
		strings.Contains(errStr, "first record does not look like a tls handshake")
}

// IsPlainHTTPToTLS reports whether a response body is the standard complaint
// of a TLS server that received a plain http request.
func IsPlainHTTPToTLS(statusCode int, body string) bool {
	return statusCode == 400 && strings.Contains(body, "HTTP request to an HTTPS server")
}

// IsTimeoutError checks if the error is a timeout error.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsDNSError checks if the error is a DNS resolution error.
func IsDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsConnectionRefusedError checks if the error is a connection refused error.
func IsConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused")
}

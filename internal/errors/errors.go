// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Gateway supervision, cluster verification and the
// connection session never panic on expected failures; they record an *E with the
// matching Kind and hand a plain value (bool, result, message) back to the caller.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// PortInUse indicates the gateway port stayed bound after the kill attempt.
	PortInUse Kind = "port_in_use"
	// SpawnFailed indicates the gateway process could not be launched.
	SpawnFailed Kind = "spawn_failed"
	// ReadinessTimeout indicates the readiness marker never appeared in time.
	ReadinessTimeout Kind = "readiness_timeout"
	// ProcessExited indicates the gateway exited before becoming ready.
	ProcessExited Kind = "process_exited"

	// Unauthorized indicates the cluster rejected the basic credentials (401).
	Unauthorized Kind = "unauthorized"
	// Forbidden indicates the cluster refused the request (403).
	Forbidden Kind = "forbidden"
	// SSLValidation indicates the cluster certificate could not be verified.
	SSLValidation Kind = "ssl_validation"
	// ProtocolMismatch indicates http was used against https or the reverse.
	ProtocolMismatch Kind = "protocol_mismatch"
	// Timeout indicates the cluster did not answer within the request timeout.
	Timeout Kind = "timeout"
	// Unreachable indicates DNS, refused or otherwise failed connections.
	Unreachable Kind = "unreachable"
	// UnexpectedStatus indicates any other non-200 HTTP status.
	UnexpectedStatus Kind = "unexpected_status"
	// MissingCredentials indicates no AWS credentials could be resolved.
	MissingCredentials Kind = "missing_credentials"
	// MissingRegion indicates no AWS region could be resolved.
	MissingRegion Kind = "missing_region"
	// MissingSecretKey indicates the secret key was absent when signing.
	MissingSecretKey Kind = "missing_secret_key"

	// RPCFailed indicates a call to the local gateway entry point failed.
	RPCFailed Kind = "rpc_failed"
	// NotConnected indicates an operation was invoked in the wrong session state.
	NotConnected Kind = "not_connected"
	// InvalidEndpoint indicates an endpoint string could not be parsed.
	InvalidEndpoint Kind = "invalid_endpoint"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RPCErrorType represents the category of a gateway RPC error
type RPCErrorType int

const (
	RPCErrorUnknown RPCErrorType = iota
	RPCErrorUnavailable
	RPCErrorTimeout
	RPCErrorUnimplemented
	RPCErrorInternal
	RPCErrorCanceled
)

// ParseRPCError categorizes an error returned by the gateway entry point.
// gRPC status codes are used when present; otherwise the message is inspected.
func ParseRPCError(err error) RPCErrorType {
	if err == nil {
		return RPCErrorUnknown
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable:
			return RPCErrorUnavailable
		case codes.DeadlineExceeded:
			return RPCErrorTimeout
		case codes.Unimplemented:
			return RPCErrorUnimplemented
		case codes.Internal, codes.Unknown:
			return RPCErrorInternal
		case codes.Canceled:
			return RPCErrorCanceled
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable"):
		return RPCErrorUnavailable
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return RPCErrorTimeout
	case strings.Contains(lower, "canceled"):
		return RPCErrorCanceled
	}
	return RPCErrorUnknown
}

// FormatRPCError formats a gateway RPC error in a user-friendly way
func FormatRPCError(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	switch ParseRPCError(err) {
	case RPCErrorUnavailable:
		b.WriteString("The SQL library gateway is not accepting connections.\n")
		b.WriteString("It may have exited; check the gateway log and reconnect.")
	case RPCErrorTimeout:
		b.WriteString("The SQL library gateway did not answer in time.")
	case RPCErrorUnimplemented:
		b.WriteString("The SQL library gateway does not support this operation.\n")
		b.WriteString("The gateway build may not match this CLI version.")
	case RPCErrorInternal:
		b.WriteString("The SQL library gateway failed while handling the request.")
	case RPCErrorCanceled:
		b.WriteString("The request to the SQL library gateway was canceled.")
	default:
		b.WriteString("Communication with the SQL library gateway failed.")
	}

	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	if strings.TrimSpace(msg) != "" {
		b.WriteString("\nTechnical details: ")
		b.WriteString(Mask(msg))
	}
	return b.String()
}

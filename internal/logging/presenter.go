// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	stderrors "errors"
	"fmt"

	"opensearchsql/cli/internal/errors"
)

// hints suggest a next step for the failure kinds a user can fix themselves.
var hints = map[errors.Kind]string{
	errors.PortInUse:          "Another process keeps the gateway port bound. Set OPENSEARCHSQL_GATEWAY_PORT to use a different port.",
	errors.Unauthorized:       "Pass --user user:password or save the password with `opensearchsql credentials save`.",
	errors.Forbidden:          "The user is authenticated but lacks permission for this cluster.",
	errors.SSLValidation:      "Retry with --insecure to skip certificate verification.",
	errors.ProtocolMismatch:   "Prefix the endpoint with http:// or https:// to match the cluster.",
	errors.MissingCredentials: "Configure AWS credentials with `aws configure` or the AWS_ACCESS_KEY_ID environment variable.",
	errors.MissingRegion:      "Set AWS_REGION or add a region to ~/.aws/config.",
}

// PresentError renders err under title for the terminal, masking secrets.
// A typed error shows its message and cause, plus a hint line when its kind
// has one.
func PresentError(title string, err error) string {
	if err == nil {
		return ""
	}
	var e *errors.E
	if !stderrors.As(err, &e) {
		return fmt.Sprintf("%s: %s", title, Mask(err.Error()))
	}

	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	out := fmt.Sprintf("%s: %s", title, Mask(msg))
	if hint, ok := hints[e.Kind]; ok {
		out += "\n" + hint
	}
	return out
}

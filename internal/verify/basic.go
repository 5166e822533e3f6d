// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package verify

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"opensearchsql/cli/internal/errors"
	"opensearchsql/cli/internal/httperrors"
	"opensearchsql/cli/internal/logging"
)

// Messages returned by Basic.
const (
	MsgUnauthorized  = "Unautorized 401 please verify your username/password."
	MsgForbiddenUser = "Forbidden 403 please verify your username/password."
	MsgSSLCert       = "Unable to verify SSL Certificate. Try adding -k flag"
	MsgProtocol      = "Please check the correct protocol: HTTP/HTTPS"
)

// BasicParams describes a directly reachable cluster and optional basic credentials.
type BasicParams struct {
	Host      string
	Port      int
	Protocol  string
	Username  string
	Password  string
	IgnoreSSL bool
}

// URL returns protocol://host:port.
func (p BasicParams) URL() string {
	return p.Protocol + "://" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Basic verifies a cluster reachable at protocol://host:port. Credentials are
// attached only when both username and password are set. Certificate
// validation is skipped only for https with IgnoreSSL.
func (v *Verifier) Basic(ctx context.Context, p BasicParams) Result {
	url := p.URL()
	insecure := p.IgnoreSSL && strings.EqualFold(p.Protocol, "https")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		v.logger.Warn("invalid cluster url", v.logger.Args("url", logging.Mask(url), "error", err.Error()))
		return failure(errors.Unreachable, fmt.Sprintf("Unable to connect %s", url))
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Username != "" && p.Password != "" {
		req.SetBasicAuth(p.Username, p.Password)
	}

	v.logger.Debug("verifying cluster", v.logger.Args("url", url, "user", p.Username, "insecure", insecure))

	resp, err := v.client(insecure).Do(req)
	if err != nil {
		res := classifyBasicTransport(err, url)
		v.logger.Warn("cluster verification failed", v.logger.Args("url", url, "kind", string(res.Kind), "error", logging.Mask(err.Error())))
		return res
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		version := readVersion(resp.Body)
		v.logger.Info("cluster verified", v.logger.Args("url", url, "version", version))
		return success(version, url, p.Username)
	case http.StatusUnauthorized:
		return failure(errors.Unauthorized, MsgUnauthorized)
	case http.StatusForbidden:
		return failure(errors.Forbidden, MsgForbiddenUser)
	case http.StatusServiceUnavailable:
		return failure(errors.UnexpectedStatus, fmt.Sprintf("Service Unavailable 503 please verify %s.", url))
	case http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if httperrors.IsPlainHTTPToTLS(resp.StatusCode, string(body)) {
			return failure(errors.ProtocolMismatch, MsgProtocol)
		}
	}
	v.logger.Warn("unexpected cluster status", v.logger.Args("url", url, "status", resp.StatusCode))
	return failure(errors.UnexpectedStatus, strconv.Itoa(resp.StatusCode))
}

func classifyBasicTransport(err error, url string) Result {
	switch httperrors.Classify(err) {
	case httperrors.ClassCertificate:
		return failure(errors.SSLValidation, MsgSSLCert)
	case httperrors.ClassProtocolMismatch:
		return failure(errors.ProtocolMismatch, MsgProtocol)
	case httperrors.ClassTimeout:
		return failure(errors.Timeout, fmt.Sprintf("Connection timeout at %s", url))
	default:
		return failure(errors.Unreachable, fmt.Sprintf("Unable to connect %s", url))
	}
}

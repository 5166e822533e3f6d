// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package verify probes a remote OpenSearch cluster before the gateway is
// asked to connect to it. Two modes are supported: basic authentication
// against a directly reachable endpoint, and AWS SigV4-signed requests
// against OpenSearch Service or OpenSearch Serverless.
//
// Each verification issues exactly one GET to the cluster root and classifies
// the outcome into a Result. Nothing is retried and nothing is returned as an
// error: expected failures such as a rejected password, an untrusted
// certificate or a missing AWS region each map to their own message and Kind.
package verify

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pterm/pterm"

	"opensearchsql/cli/internal/errors"
	"opensearchsql/cli/internal/logging"
)

// DefaultTimeout bounds each verification request.
const DefaultTimeout = 10 * time.Second

// maxBodySize bounds the cluster root response read.
const maxBodySize int64 = 1 << 20

// Result is the outcome of a verification. Empty strings mean "absent".
type Result struct {
	Success  bool
	Message  string
	Version  string
	URL      string
	Identity string
	// Kind categorizes a failure; it is empty on success.
	Kind errors.Kind
}

func success(version, url, identity string) Result {
	return Result{Success: true, Message: "success", Version: version, URL: url, Identity: identity}
}

func failure(kind errors.Kind, msg string) Result {
	return Result{Message: msg, Kind: kind}
}

// Verifier holds the transport settings shared by both verification modes.
type Verifier struct {
	timeout     time.Duration
	transport   *http.Transport
	credentials CredentialSource
	logger      *pterm.Logger
	now         func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithTransport sets the base transport. It is cloned for every request so
// that per-call TLS settings never leak between verifications.
func WithTransport(t *http.Transport) Option {
	return func(v *Verifier) {
		if t != nil {
			v.transport = t
		}
	}
}

// WithCredentialSource sets where AWS credentials and region come from.
func WithCredentialSource(src CredentialSource) Option {
	return func(v *Verifier) {
		if src != nil {
			v.credentials = src
		}
	}
}

// WithLogger sets the diagnostic log sink.
func WithLogger(l *pterm.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Verifier. Without options it uses a 10s timeout, a clone of
// http.DefaultTransport and the default AWS credential chain.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		timeout:     DefaultTimeout,
		transport:   http.DefaultTransport.(*http.Transport).Clone(),
		credentials: DefaultCredentialSource(),
		logger:      logging.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// client builds a single-use HTTP client. When insecure is set the server
// certificate is not validated.
func (v *Verifier) client(insecure bool) *http.Client {
	t := v.transport.Clone()
	if insecure {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = newTLSConfig()
		}
		t.TLSClientConfig.InsecureSkipVerify = true
	}
	return &http.Client{Timeout: v.timeout, Transport: t}
}

// clusterInfo is the subset of the cluster root response we read.
type clusterInfo struct {
	Version struct {
		Number string `json:"number"`
	} `json:"version"`
}

// readVersion extracts version.number from a root response. A body that is
// not JSON or lacks the field yields an empty version, not a failure.
func readVersion(body io.Reader) string {
	var info clusterInfo
	if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(&info); err != nil {
		return ""
	}
	return info.Version.Number
}

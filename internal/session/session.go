// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session drives one CLI connection: it brings up the local gateway,
// verifies the remote cluster, initializes the cluster connection over the
// gateway entry point and forwards queries.
//
// The session is a strict three-state machine:
//
//	Disconnected -> GatewayConnected -> ClusterInitialized
//
// Operations check their precondition and fail soft: they return false or an
// "Error: ..." string and record ErrorMessage and LastError. Nothing panics
// across the package boundary. A Session is driven by a single caller and is
// not safe for concurrent use.
package session

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/pterm/pterm"

	"opensearchsql/cli/internal/endpoint"
	"opensearchsql/cli/internal/errors"
	"opensearchsql/cli/internal/logging"
	"opensearchsql/cli/internal/rpc"
	"opensearchsql/cli/internal/verify"
)

// Messages returned by Query and stored by Initialize.
const (
	MsgNoLibrary      = "Error: Not connected to SQL library"
	MsgNoCluster      = "Error: Not connected to OpenSearch Cluster"
	MsgLibraryDown    = "Unable to connect the SQL library"
	MsgAWSNeedsURL    = "URL is required for AWS Authentication"
	MsgGatewayFailure = "Failed to start the SQL library gateway"
)

// Gateway is the part of the gateway manager the session depends on.
type Gateway interface {
	Start(ctx context.Context) bool
	Started() bool
	Port() int
}

// Verifier checks cluster reachability before the gateway is told to connect.
type Verifier interface {
	Basic(ctx context.Context, p verify.BasicParams) verify.Result
	AWS(ctx context.Context, host string) verify.Result
}

// Dialer opens the gateway entry point on a local port.
type Dialer func(ctx context.Context, port int) (rpc.EntryPoint, error)

// State is the session connection state.
type State int

const (
	Disconnected State = iota
	GatewayConnected
	ClusterInitialized
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case GatewayConnected:
		return "gateway_connected"
	case ClusterInitialized:
		return "cluster_initialized"
	default:
		return "unknown"
	}
}

// Info describes the initialized cluster connection.
type Info struct {
	Endpoint endpoint.Endpoint
	// AWSHost is the host passed to the gateway for AWS connections.
	AWSHost string
	AWS     bool
	URL     string
	Version string
	// Username is the basic-auth user, or "AWS <region>" for AWS connections.
	Username string
}

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces rpc.Dial.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dial = d }
}

// WithVerifier replaces the default cluster verifier.
func WithVerifier(v Verifier) Option {
	return func(s *Session) { s.verifier = v }
}

// WithDefaults sets the endpoint used for parts missing from Initialize's input.
func WithDefaults(ep endpoint.Endpoint) Option {
	return func(s *Session) { s.defaults = ep }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *pterm.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session is a connection to a cluster through the local gateway.
type Session struct {
	gw       Gateway
	dial     Dialer
	verifier Verifier
	defaults endpoint.Endpoint
	log      *pterm.Logger

	entry            rpc.EntryPoint
	gatewayConnected bool
	clusterConnected bool

	username string
	password string
	info     Info

	errMsg  string
	lastErr error
}

// New creates a disconnected session on top of gw.
func New(gw Gateway, opts ...Option) *Session {
	s := &Session{
		gw:       gw,
		defaults: endpoint.Default,
		log:      logging.Discard(),
		dial: func(ctx context.Context, port int) (rpc.EntryPoint, error) {
			return rpc.Dial(ctx, port)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier == nil {
		s.verifier = verify.New(verify.WithLogger(s.log))
	}
	return s
}

// State returns the current connection state.
func (s *Session) State() State {
	switch {
	case s.gatewayConnected && s.clusterConnected:
		return ClusterInitialized
	case s.gatewayConnected:
		return GatewayConnected
	default:
		return Disconnected
	}
}

// Info returns details of the last successful Initialize.
func (s *Session) Info() Info { return s.info }

// ErrorMessage is the user-facing message of the last failure.
func (s *Session) ErrorMessage() string { return s.errMsg }

// LastError is the typed error of the last failure, or nil.
func (s *Session) LastError() error { return s.lastErr }

// Connect brings up the gateway if needed and opens its entry point.
// It is a no-op returning true when already connected.
func (s *Session) Connect(ctx context.Context) bool {
	if s.gatewayConnected {
		return true
	}
	if !s.gw.Started() && !s.gw.Start(ctx) {
		var cause error
		if le, ok := s.gw.(interface{ LastError() error }); ok {
			cause = le.LastError()
		}
		msg := MsgGatewayFailure
		if cause != nil {
			msg = fmt.Sprintf("%s: %s", msg, causeMessage(cause))
		}
		kind := errors.KindOf(cause)
		if kind == "" {
			kind = errors.SpawnFailed
		}
		s.fail(errors.Wrap(kind, msg, cause))
		return false
	}

	if s.entry != nil {
		// Handle left over from a previous Disconnect.
		_ = s.entry.Close()
		s.entry = nil
	}
	port := s.gw.Port()
	entry, err := s.dial(ctx, port)
	if err != nil {
		s.fail(errors.Wrap(errors.RPCFailed, fmt.Sprintf("Failed to connect to SQL on port %d: %v", port, err), err))
		return false
	}
	s.entry = entry
	s.gatewayConnected = true
	s.log.Info("connected to SQL library", s.log.Args("port", port))
	return true
}

// Initialize verifies the cluster at rawEndpoint and connects the gateway to
// it. credentials is "user:password" and may be empty. Calling it again on an
// initialized session re-initializes; the gateway answers "Already
// initialized" for an unchanged target. Any failure leaves the session in
// GatewayConnected.
func (s *Session) Initialize(ctx context.Context, rawEndpoint, credentials string, ignoreSSL, awsAuth bool) bool {
	if !s.gatewayConnected || s.entry == nil {
		s.fail(errors.New(errors.NotConnected, MsgLibraryDown))
		return false
	}
	if user, password, ok := endpoint.SplitCredentials(credentials); ok {
		s.username, s.password = user, password
	}

	var (
		info Info
		resp string
		err  error
	)
	if awsAuth {
		if rawEndpoint == "" {
			return s.initFailed(errors.New(errors.InvalidEndpoint, MsgAWSNeedsURL))
		}
		_, host := endpoint.StripScheme(rawEndpoint)
		res := s.verifier.AWS(ctx, host)
		if !res.Success {
			return s.initFailed(errors.New(res.Kind, res.Message))
		}
		info = Info{AWSHost: host, AWS: true, URL: res.URL, Version: res.Version, Username: "AWS " + res.Identity}
		resp, err = s.entry.InitializeAwsConnection(ctx, host)
	} else {
		ep, perr := endpoint.Parse(rawEndpoint, s.defaults)
		if perr != nil {
			msg := perr.Error()
			var pe *endpoint.ParseError
			if stderrors.As(perr, &pe) {
				msg = pe.Reason
			}
			return s.initFailed(errors.Wrap(errors.InvalidEndpoint, msg, perr))
		}
		res := s.verifier.Basic(ctx, verify.BasicParams{
			Host:      ep.Host,
			Port:      ep.Port,
			Protocol:  ep.Protocol,
			Username:  s.username,
			Password:  s.password,
			IgnoreSSL: ignoreSSL,
		})
		if !res.Success {
			return s.initFailed(errors.New(res.Kind, res.Message))
		}
		if res.Identity != "" {
			s.username = res.Identity
		}
		info = Info{Endpoint: ep, URL: res.URL, Version: res.Version, Username: s.username}
		resp, err = s.entry.InitializeConnection(ctx, rpc.ConnectionParams{
			Host:      ep.Host,
			Port:      ep.Port,
			Protocol:  ep.Protocol,
			Username:  s.username,
			Password:  s.password,
			IgnoreSSL: ignoreSSL,
		})
	}

	if err != nil {
		target := rawEndpoint
		if target == "" {
			target = info.URL
		}
		return s.initFailed(errors.Wrap(errors.RPCFailed,
			fmt.Sprintf("Unable to connect to %s: %s", target, logging.FormatRPCError(err)), err))
	}
	if !rpc.IsSuccess(resp) {
		return s.initFailed(errors.New(errors.RPCFailed, resp))
	}

	s.info = info
	s.clusterConnected = true
	s.errMsg, s.lastErr = "", nil
	s.log.Info("cluster connection initialized", s.log.Args("url", info.URL, "version", info.Version, "aws", info.AWS))
	return true
}

// Query forwards query to the gateway and returns its formatted result
// verbatim. Failures come back as an "Error: ..." string.
func (s *Session) Query(ctx context.Context, query string, isPPL bool, format string) string {
	if !s.gatewayConnected || s.entry == nil {
		return MsgNoLibrary
	}
	if !s.clusterConnected {
		return MsgNoCluster
	}
	out, err := s.entry.QueryExecution(ctx, rpc.QueryParams{Query: query, IsPPL: isPPL, Format: format})
	if err != nil {
		msg := "Error: " + logging.FormatRPCError(err)
		s.fail(errors.Wrap(errors.RPCFailed, msg, err))
		return msg
	}
	return out
}

// Disconnect notifies the gateway and returns the session to Disconnected.
// It returns false, changing nothing, when the session was never connected
// or the notification fails.
func (s *Session) Disconnect(ctx context.Context) bool {
	if !s.gatewayConnected || s.entry == nil {
		return false
	}
	if _, err := s.entry.Disconnect(ctx); err != nil {
		s.fail(errors.Wrap(errors.RPCFailed, "Error: "+logging.FormatRPCError(err), err))
		return false
	}
	s.gatewayConnected = false
	s.clusterConnected = false
	s.log.Info("disconnected from SQL library")
	return true
}

// Close releases the entry point handle. The gateway process is not touched;
// it belongs to whoever created the gateway manager.
func (s *Session) Close() error {
	s.gatewayConnected = false
	s.clusterConnected = false
	if s.entry == nil {
		return nil
	}
	err := s.entry.Close()
	s.entry = nil
	return err
}

func (s *Session) initFailed(e *errors.E) bool {
	s.clusterConnected = false
	s.fail(e)
	return false
}

func (s *Session) fail(e *errors.E) {
	s.errMsg = e.Message
	s.lastErr = e
	s.log.Warn("session operation failed", s.log.Args("kind", string(e.Kind), "error", logging.Mask(e.Message)))
}

func causeMessage(err error) string {
	var e *errors.E
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

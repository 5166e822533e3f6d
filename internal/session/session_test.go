// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"opensearchsql/cli/internal/endpoint"
	"opensearchsql/cli/internal/errors"
	"opensearchsql/cli/internal/rpc"
	"opensearchsql/cli/internal/verify"
)

type fakeGateway struct {
	started bool
	startOK bool
	starts  int
	port    int
	err     error
}

func (g *fakeGateway) Start(context.Context) bool {
	g.starts++
	g.started = g.startOK
	return g.startOK
}
func (g *fakeGateway) Started() bool    { return g.started }
func (g *fakeGateway) Port() int        { return g.port }
func (g *fakeGateway) LastError() error { return g.err }

type fakeEntry struct {
	initResp   string
	queryResp  string
	err        error
	disconnErr error

	conn   []rpc.ConnectionParams
	hosts  []string
	calls  []string
	closed int
}

func (e *fakeEntry) InitializeConnection(_ context.Context, p rpc.ConnectionParams) (string, error) {
	e.calls = append(e.calls, rpc.MethodInitializeConnection)
	e.conn = append(e.conn, p)
	if e.err != nil {
		return "", e.err
	}
	if len(e.conn) > 1 && e.initResp == rpc.RespInitialized {
		return rpc.RespAlreadyInitialized, nil
	}
	return e.initResp, nil
}

func (e *fakeEntry) InitializeAwsConnection(_ context.Context, host string) (string, error) {
	e.calls = append(e.calls, rpc.MethodInitializeAwsConnection)
	e.hosts = append(e.hosts, host)
	if e.err != nil {
		return "", e.err
	}
	return e.initResp, nil
}

func (e *fakeEntry) QueryExecution(_ context.Context, q rpc.QueryParams) (string, error) {
	e.calls = append(e.calls, rpc.MethodQueryExecution+":"+q.Query)
	if e.err != nil {
		return "", e.err
	}
	return e.queryResp, nil
}

func (e *fakeEntry) Disconnect(context.Context) (string, error) {
	e.calls = append(e.calls, rpc.MethodDisconnect)
	return "Disconnected", e.disconnErr
}

func (e *fakeEntry) Close() error {
	e.closed++
	return nil
}

type fakeVerifier struct {
	basic verify.Result
	aws   verify.Result

	basicCalls []verify.BasicParams
	awsCalls   []string
}

func (v *fakeVerifier) Basic(_ context.Context, p verify.BasicParams) verify.Result {
	v.basicCalls = append(v.basicCalls, p)
	return v.basic
}

func (v *fakeVerifier) AWS(_ context.Context, host string) verify.Result {
	v.awsCalls = append(v.awsCalls, host)
	return v.aws
}

type harness struct {
	gw       *fakeGateway
	entry    *fakeEntry
	verifier *fakeVerifier
	dials    []int
	s        *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gw:    &fakeGateway{startOK: true, port: 25333},
		entry: &fakeEntry{initResp: rpc.RespInitialized, queryResp: `{"total":1}`},
		verifier: &fakeVerifier{
			basic: verify.Result{Success: true, Message: "success", Version: "2.19.0", URL: "http://localhost:9200", Identity: "admin"},
			aws:   verify.Result{Success: true, Message: "success", Version: "2.13", URL: "https://search-x.us-west-2.es.amazonaws.com", Identity: "us-west-2"},
		},
	}
	h.s = New(h.gw,
		WithVerifier(h.verifier),
		WithDialer(func(_ context.Context, port int) (rpc.EntryPoint, error) {
			h.dials = append(h.dials, port)
			return h.entry, nil
		}),
	)
	return h
}

func (h *harness) initialized(t *testing.T) {
	t.Helper()
	if !h.s.Connect(context.Background()) {
		t.Fatalf("Connect() = false: %s", h.s.ErrorMessage())
	}
	if !h.s.Initialize(context.Background(), "localhost:9200", "admin:admin", false, false) {
		t.Fatalf("Initialize() = false: %s", h.s.ErrorMessage())
	}
}

func TestConnect(t *testing.T) {
	t.Run("starts gateway and dials its port", func(t *testing.T) {
		h := newHarness(t)
		if !h.s.Connect(context.Background()) {
			t.Fatalf("Connect() = false: %s", h.s.ErrorMessage())
		}
		if h.gw.starts != 1 {
			t.Errorf("gateway starts = %d, want 1", h.gw.starts)
		}
		if len(h.dials) != 1 || h.dials[0] != 25333 {
			t.Errorf("dials = %v, want [25333]", h.dials)
		}
		if h.s.State() != GatewayConnected {
			t.Errorf("State() = %v, want %v", h.s.State(), GatewayConnected)
		}
	})

	t.Run("already connected is a no-op", func(t *testing.T) {
		h := newHarness(t)
		h.s.Connect(context.Background())
		if !h.s.Connect(context.Background()) {
			t.Fatal("second Connect() = false")
		}
		if h.gw.starts != 1 || len(h.dials) != 1 {
			t.Errorf("second Connect() started=%d dials=%d, want 1 and 1", h.gw.starts, len(h.dials))
		}
	})

	t.Run("running gateway is not restarted", func(t *testing.T) {
		h := newHarness(t)
		h.gw.started = true
		if !h.s.Connect(context.Background()) {
			t.Fatal("Connect() = false")
		}
		if h.gw.starts != 0 {
			t.Errorf("gateway starts = %d, want 0", h.gw.starts)
		}
	})

	t.Run("gateway failure stays disconnected", func(t *testing.T) {
		h := newHarness(t)
		h.gw.startOK = false
		h.gw.err = errors.New(errors.ReadinessTimeout, "failed to start gateway server within 30s")
		if h.s.Connect(context.Background()) {
			t.Fatal("Connect() = true")
		}
		if h.s.State() != Disconnected {
			t.Errorf("State() = %v, want %v", h.s.State(), Disconnected)
		}
		if len(h.dials) != 0 {
			t.Errorf("dialed %v after gateway failure", h.dials)
		}
		if got := errors.KindOf(h.s.LastError()); got != errors.ReadinessTimeout {
			t.Errorf("KindOf(LastError()) = %q, want %q", got, errors.ReadinessTimeout)
		}
		if !strings.Contains(h.s.ErrorMessage(), "within 30s") {
			t.Errorf("ErrorMessage() = %q", h.s.ErrorMessage())
		}
	})

	t.Run("dial failure", func(t *testing.T) {
		h := newHarness(t)
		h.s.dial = func(context.Context, int) (rpc.EntryPoint, error) {
			return nil, stderrors.New("connection refused")
		}
		if h.s.Connect(context.Background()) {
			t.Fatal("Connect() = true")
		}
		if want := "Failed to connect to SQL on port 25333: connection refused"; h.s.ErrorMessage() != want {
			t.Errorf("ErrorMessage() = %q, want %q", h.s.ErrorMessage(), want)
		}
		if h.s.State() != Disconnected {
			t.Errorf("State() = %v, want %v", h.s.State(), Disconnected)
		}
	})
}

func TestInitializeBasic(t *testing.T) {
	h := newHarness(t)
	h.s.Connect(context.Background())

	if !h.s.Initialize(context.Background(), "https://search.local:9201", "admin:pa:ss", true, false) {
		t.Fatalf("Initialize() = false: %s", h.s.ErrorMessage())
	}
	if h.s.State() != ClusterInitialized {
		t.Errorf("State() = %v, want %v", h.s.State(), ClusterInitialized)
	}

	wantParams := verify.BasicParams{Host: "search.local", Port: 9201, Protocol: "https", Username: "admin", Password: "pa:ss", IgnoreSSL: true}
	if len(h.verifier.basicCalls) != 1 || h.verifier.basicCalls[0] != wantParams {
		t.Errorf("verifier saw %+v, want %+v", h.verifier.basicCalls, wantParams)
	}
	wantRPC := rpc.ConnectionParams{Host: "search.local", Port: 9201, Protocol: "https", Username: "admin", Password: "pa:ss", IgnoreSSL: true}
	if len(h.entry.conn) != 1 || h.entry.conn[0] != wantRPC {
		t.Errorf("gateway saw %+v, want %+v", h.entry.conn, wantRPC)
	}

	info := h.s.Info()
	if info.Version != "2.19.0" || info.URL != "http://localhost:9200" || info.Username != "admin" || info.AWS {
		t.Errorf("Info() = %+v", info)
	}
}

func TestInitializeDefaults(t *testing.T) {
	h := newHarness(t)
	h.s.defaults = endpoint.Endpoint{Protocol: "https", Host: "os.internal", Port: 443}
	h.s.Connect(context.Background())

	if !h.s.Initialize(context.Background(), "", "", false, false) {
		t.Fatalf("Initialize() = false: %s", h.s.ErrorMessage())
	}
	got := h.verifier.basicCalls[0]
	if got.Host != "os.internal" || got.Port != 443 || got.Protocol != "https" {
		t.Errorf("verifier saw %+v, want configured defaults", got)
	}
	if got.Username != "" || got.Password != "" {
		t.Errorf("credentials = %q/%q, want none", got.Username, got.Password)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.initialized(t)

	if !h.s.Initialize(context.Background(), "localhost:9200", "admin:admin", false, false) {
		t.Fatalf("second Initialize() = false: %s", h.s.ErrorMessage())
	}
	if h.s.State() != ClusterInitialized {
		t.Errorf("State() = %v, want %v", h.s.State(), ClusterInitialized)
	}
	if len(h.entry.conn) != 2 {
		t.Errorf("initializeConnection calls = %d, want 2", len(h.entry.conn))
	}
}

func TestInitializeAWS(t *testing.T) {
	h := newHarness(t)
	h.s.Connect(context.Background())

	if !h.s.Initialize(context.Background(), "https://search-x.us-west-2.es.amazonaws.com", "", false, true) {
		t.Fatalf("Initialize() = false: %s", h.s.ErrorMessage())
	}
	if len(h.verifier.awsCalls) != 1 || h.verifier.awsCalls[0] != "search-x.us-west-2.es.amazonaws.com" {
		t.Errorf("verifier saw %v, want host without scheme", h.verifier.awsCalls)
	}
	if len(h.entry.hosts) != 1 || h.entry.hosts[0] != "search-x.us-west-2.es.amazonaws.com" {
		t.Errorf("gateway saw %v", h.entry.hosts)
	}
	if len(h.verifier.basicCalls) != 0 {
		t.Error("basic verification ran for an AWS connection")
	}
	info := h.s.Info()
	if !info.AWS || info.Username != "AWS us-west-2" || info.Version != "2.13" {
		t.Errorf("Info() = %+v", info)
	}
}

func TestInitializeFailures(t *testing.T) {
	tests := []struct {
		name      string
		endpoint  string
		aws       bool
		setup     func(h *harness)
		wantMsg   string
		wantKind  errors.Kind
		wantNoRPC bool
	}{
		{
			name:      "aws without url",
			aws:       true,
			wantMsg:   "URL is required for AWS Authentication",
			wantKind:  errors.InvalidEndpoint,
			wantNoRPC: true,
		},
		{
			name:      "invalid port",
			endpoint:  "localhost:abc",
			wantMsg:   "Invalid port: abc",
			wantKind:  errors.InvalidEndpoint,
			wantNoRPC: true,
		},
		{
			name:     "basic verification fails",
			endpoint: "localhost:9200",
			setup: func(h *harness) {
				h.verifier.basic = verify.Result{Message: verify.MsgUnauthorized, Kind: errors.Unauthorized}
			},
			wantMsg:   verify.MsgUnauthorized,
			wantKind:  errors.Unauthorized,
			wantNoRPC: true,
		},
		{
			name:     "aws verification fails",
			endpoint: "https://search-x.us-west-2.es.amazonaws.com",
			aws:      true,
			setup: func(h *harness) {
				h.verifier.aws = verify.Result{Message: verify.MsgNoAWSRegion, Kind: errors.MissingRegion}
			},
			wantMsg:   verify.MsgNoAWSRegion,
			wantKind:  errors.MissingRegion,
			wantNoRPC: true,
		},
		{
			name:     "gateway answers with error",
			endpoint: "localhost:9200",
			setup: func(h *harness) {
				h.entry.initResp = "Error: Connection refused by cluster"
			},
			wantMsg:  "Error: Connection refused by cluster",
			wantKind: errors.RPCFailed,
		},
		{
			name:     "rpc call fails",
			endpoint: "localhost:9200",
			setup: func(h *harness) {
				h.entry.err = status.Error(codes.Unavailable, "connection reset")
			},
			wantMsg:  "Unable to connect to localhost:9200: ",
			wantKind: errors.RPCFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.initialized(t)
			if tt.setup != nil {
				tt.setup(h)
			}

			// A failed re-initialize drops back to GatewayConnected.
			h.entry.conn, h.entry.hosts, h.entry.calls = nil, nil, nil
			if h.s.Initialize(context.Background(), tt.endpoint, "", false, tt.aws) {
				t.Fatal("Initialize() = true")
			}
			if !strings.HasPrefix(h.s.ErrorMessage(), tt.wantMsg) {
				t.Errorf("ErrorMessage() = %q, want prefix %q", h.s.ErrorMessage(), tt.wantMsg)
			}
			if got := errors.KindOf(h.s.LastError()); got != tt.wantKind {
				t.Errorf("KindOf(LastError()) = %q, want %q", got, tt.wantKind)
			}
			if h.s.State() != GatewayConnected {
				t.Errorf("State() = %v, want %v", h.s.State(), GatewayConnected)
			}
			if tt.wantNoRPC && len(h.entry.calls) != 0 {
				t.Errorf("gateway calls = %v, want none", h.entry.calls)
			}
		})
	}
}

func TestInitializeRequiresGateway(t *testing.T) {
	h := newHarness(t)
	if h.s.Initialize(context.Background(), "localhost:9200", "admin:admin", false, false) {
		t.Fatal("Initialize() = true before Connect()")
	}
	if h.s.ErrorMessage() != MsgLibraryDown {
		t.Errorf("ErrorMessage() = %q, want %q", h.s.ErrorMessage(), MsgLibraryDown)
	}
	if len(h.verifier.basicCalls) != 0 {
		t.Error("verifier ran before Connect()")
	}
}

func TestQuery(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		h := newHarness(t)
		if got := h.s.Query(context.Background(), "select 1", false, "table"); got != MsgNoLibrary {
			t.Errorf("Query() = %q, want %q", got, MsgNoLibrary)
		}
		if len(h.entry.calls) != 0 {
			t.Errorf("gateway calls = %v, want none", h.entry.calls)
		}
	})

	t.Run("gateway only", func(t *testing.T) {
		h := newHarness(t)
		h.s.Connect(context.Background())
		if got := h.s.Query(context.Background(), "select 1", false, "table"); got != MsgNoCluster {
			t.Errorf("Query() = %q, want %q", got, MsgNoCluster)
		}
		if len(h.entry.calls) != 0 {
			t.Errorf("gateway calls = %v, want none", h.entry.calls)
		}
	})

	t.Run("forwards verbatim", func(t *testing.T) {
		h := newHarness(t)
		h.initialized(t)
		h.entry.queryResp = "Error: index [logs] not found"
		got := h.s.Query(context.Background(), "source=logs | head 5", true, "json")
		if got != "Error: index [logs] not found" {
			t.Errorf("Query() = %q, want raw gateway result", got)
		}
		if last := h.entry.calls[len(h.entry.calls)-1]; last != rpc.MethodQueryExecution+":source=logs | head 5" {
			t.Errorf("last call = %q", last)
		}
	})

	t.Run("rpc failure", func(t *testing.T) {
		h := newHarness(t)
		h.initialized(t)
		h.entry.err = status.Error(codes.Internal, "engine exploded")
		got := h.s.Query(context.Background(), "select 1", false, "table")
		if !strings.HasPrefix(got, "Error: ") || !strings.Contains(got, "engine exploded") {
			t.Errorf("Query() = %q", got)
		}
		if h.s.ErrorMessage() != got {
			t.Errorf("ErrorMessage() = %q, want %q", h.s.ErrorMessage(), got)
		}
		if h.s.State() != ClusterInitialized {
			t.Errorf("State() = %v, want %v", h.s.State(), ClusterInitialized)
		}
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("never connected", func(t *testing.T) {
		h := newHarness(t)
		if h.s.Disconnect(context.Background()) {
			t.Fatal("Disconnect() = true")
		}
		if h.s.State() != Disconnected {
			t.Errorf("State() = %v, want %v", h.s.State(), Disconnected)
		}
	})

	t.Run("resets state", func(t *testing.T) {
		h := newHarness(t)
		h.initialized(t)
		if !h.s.Disconnect(context.Background()) {
			t.Fatal("Disconnect() = false")
		}
		if h.s.State() != Disconnected {
			t.Errorf("State() = %v, want %v", h.s.State(), Disconnected)
		}
		if got := h.s.Query(context.Background(), "select 1", false, "table"); got != MsgNoLibrary {
			t.Errorf("Query() after Disconnect() = %q", got)
		}
	})

	t.Run("rpc failure leaves state", func(t *testing.T) {
		h := newHarness(t)
		h.initialized(t)
		h.entry.disconnErr = status.Error(codes.Unavailable, "gone")
		if h.s.Disconnect(context.Background()) {
			t.Fatal("Disconnect() = true")
		}
		if h.s.State() != ClusterInitialized {
			t.Errorf("State() = %v, want %v", h.s.State(), ClusterInitialized)
		}
	})

	t.Run("reconnect closes stale handle", func(t *testing.T) {
		h := newHarness(t)
		h.initialized(t)
		h.s.Disconnect(context.Background())
		if !h.s.Connect(context.Background()) {
			t.Fatal("Connect() after Disconnect() = false")
		}
		if h.entry.closed != 1 {
			t.Errorf("Close() calls = %d, want 1", h.entry.closed)
		}
		if len(h.dials) != 2 {
			t.Errorf("dials = %d, want 2", len(h.dials))
		}
	})
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	h.initialized(t)
	if err := h.s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := h.s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if h.entry.closed != 1 {
		t.Errorf("entry Close() calls = %d, want 1", h.entry.closed)
	}
	if h.s.State() != Disconnected {
		t.Errorf("State() = %v, want %v", h.s.State(), Disconnected)
	}
}

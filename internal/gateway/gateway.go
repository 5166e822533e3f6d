// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway supervises the local SQL library gateway: the subprocess
// that hosts the query engine and exposes the RPC entry point the session
// talks to.
//
// A Manager owns at most one gateway process. Start clears a stale process
// off the gateway port, spawns the command, and waits a bounded time for the
// readiness marker on the process output. The output is drained into the log
// sink by a goroutine that lives as long as the process, so the child never
// blocks on a full pipe. Failures are reported as false plus LastError; they
// never panic and are never retried automatically.
package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"opensearchsql/cli/internal/errors"
	"opensearchsql/cli/internal/logging"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultPort         = 25333
	DefaultReadyMarker  = "Gateway Server Started"
	DefaultReadyTimeout = 30 * time.Second
)

const (
	// PortEnv is set in the child environment to the gateway port.
	PortEnv = "OPENSEARCHSQL_GATEWAY_PORT"
	// portPlaceholder in a command argument is replaced with the gateway port.
	portPlaceholder = "{port}"

	portReleaseWait = 2 * time.Second
	shutdownWait    = 2 * time.Second
	maxLineSize     = 1 << 20
)

// State is the lifecycle state of the gateway process.
type State int

const (
	NotStarted State = iota
	Starting
	Ready
	Failed
	Terminated
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options configures a Manager.
type Options struct {
	// Port the gateway serves its entry point on.
	Port int
	// Command is the gateway argv. "{port}" in any argument is replaced by Port.
	Command []string
	// Dir is the working directory of the gateway process.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// ReadyMarker is the output line fragment that signals readiness.
	ReadyMarker string
	// ReadyTimeout bounds the wait for ReadyMarker.
	ReadyTimeout time.Duration
	// Logger receives the gateway output and lifecycle events.
	Logger *pterm.Logger
}

// Manager owns the lifecycle of one gateway process.
type Manager struct {
	opts Options
	log  *pterm.Logger

	mu      sync.Mutex
	state   State
	started bool
	cmd     *exec.Cmd
	pid     int
	drained chan struct{}
	lastErr *errors.E

	// Hooks for port handling; replaced in tests.
	portInUse   func(port int) bool
	freePort    func(ctx context.Context, port int) error
	releaseWait time.Duration
}

// New creates a Manager. Nothing is spawned until Start.
func New(opts Options) *Manager {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.ReadyMarker == "" {
		opts.ReadyMarker = DefaultReadyMarker
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Manager{
		opts:        opts,
		log:         opts.Logger,
		state:       NotStarted,
		portInUse:   portInUse,
		freePort:    killListeners,
		releaseWait: portReleaseWait,
	}
}

// Port returns the gateway port.
func (m *Manager) Port() int { return m.opts.Port }

// Started reports whether a gateway started by this Manager is ready and
// still running.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedLocked()
}

func (m *Manager) startedLocked() bool {
	return m.started && !closed(m.drained)
}

// State returns the lifecycle state. A ready process that has since exited
// reports Terminated.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Ready && closed(m.drained) {
		return Terminated
	}
	return m.state
}

// PID returns the pid of the current gateway process, or 0.
func (m *Manager) PID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pid
}

// LastError returns the error of the most recent failed Start, or nil.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr == nil {
		return nil
	}
	return m.lastErr
}

// Start launches the gateway and waits for its readiness marker. It returns
// true immediately when the gateway is already running. Every failure is
// terminal for the call; the caller decides whether to retry.
func (m *Manager) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startedLocked() {
		return true
	}
	if m.started {
		// Ready earlier but the process has exited since.
		m.log.Warn("gateway process is gone, starting a new one", m.log.Args("pid", m.pid))
		m.reset(Terminated)
	}

	m.state = Starting
	m.lastErr = nil
	m.log.Info("initializing SQL library", m.log.Args("port", m.opts.Port))

	if err := m.clearPort(ctx); err != nil {
		return m.fail(err)
	}

	if len(m.opts.Command) == 0 {
		return m.fail(errors.New(errors.SpawnFailed, "no gateway command configured"))
	}
	argv := m.expandArgs()
	m.log.Info("starting gateway", m.log.Args("command", logging.Mask(strings.Join(argv, " "))))

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = m.opts.Dir
	cmd.Env = append(os.Environ(), m.opts.Env...)
	cmd.Env = append(cmd.Env, PortEnv+"="+strconv.Itoa(m.opts.Port))
	setProcessGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return m.fail(errors.Wrap(errors.SpawnFailed, "create output pipe", err))
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return m.fail(errors.Wrap(errors.SpawnFailed, "start gateway process", err))
	}
	// The child holds its own copy of the write end; EOF on pr now means exit.
	pw.Close()

	ready := make(chan struct{})
	drained := make(chan struct{})
	m.cmd = cmd
	m.pid = cmd.Process.Pid
	m.drained = drained
	go m.drain(pr, cmd, ready, drained)

	timer := time.NewTimer(m.opts.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return m.ready()
	case <-drained:
		select {
		case <-ready:
			// Marker was the last line before exit.
		default:
			return m.abort(errors.New(errors.ProcessExited, "gateway exited before it was ready"))
		}
		return m.ready()
	case <-timer.C:
		return m.abort(errors.New(errors.ReadinessTimeout,
			fmt.Sprintf("failed to start gateway server within %s", m.opts.ReadyTimeout)))
	case <-ctx.Done():
		return m.abort(errors.Wrap(errors.ReadinessTimeout, "gateway start canceled", ctx.Err()))
	}
}

// Shutdown kills the gateway process tree and joins the output drain. It is
// a no-op when nothing was started and safe to call more than once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd == nil {
		return nil
	}
	m.log.Info("terminating gateway server process", m.log.Args("pid", m.pid))
	err := killTree(m.cmd)
	if !waitClosed(m.drained, shutdownWait) {
		m.log.Warn("gateway output drain did not finish", m.log.Args("pid", m.pid))
	}
	m.reset(Terminated)
	m.log.Info("SQL library resources cleaned up")
	return err
}

// clearPort kills whatever listens on the gateway port and waits for the
// port to be released.
func (m *Manager) clearPort(ctx context.Context) *errors.E {
	port := m.opts.Port
	if !m.portInUse(port) {
		return nil
	}
	m.log.Warn("gateway port in use, killing occupant", m.log.Args("port", port))
	if err := m.freePort(ctx, port); err != nil {
		return errors.Wrap(errors.PortInUse, fmt.Sprintf("kill process on port %d", port), err)
	}

	deadline := time.Now().Add(m.releaseWait)
	for m.portInUse(port) {
		if time.Now().After(deadline) {
			return errors.New(errors.PortInUse, fmt.Sprintf("port %d still in use after kill", port))
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.PortInUse, "waiting for port release", ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
	m.log.Info("killed process using gateway port", m.log.Args("port", port))
	return nil
}

// drain logs every output line until EOF, closes ready on the first line
// containing the marker, then reaps the process.
func (m *Manager) drain(r io.ReadCloser, cmd *exec.Cmd, ready chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	defer r.Close()

	signaled := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		m.log.Info("gateway", m.log.Args("line", logging.Mask(line)))
		if !signaled && strings.Contains(line, m.opts.ReadyMarker) {
			signaled = true
			close(ready)
		}
	}
	if err := scanner.Err(); err != nil {
		m.log.Error("error reading gateway output", m.log.Args("error", err.Error()))
		// Keep the pipe flowing so the child never blocks on write.
		_, _ = io.Copy(io.Discard, r)
	}

	err := cmd.Wait()
	fields := []any{"pid", cmd.Process.Pid}
	if err != nil {
		fields = append(fields, "status", err.Error())
	}
	m.log.Info("gateway process exited", m.log.Args(fields...))
}

func (m *Manager) ready() bool {
	m.started = true
	m.state = Ready
	m.log.Info("SQL library initialized successfully", m.log.Args("pid", m.pid, "port", m.opts.Port))
	return true
}

// abort kills a process that failed to become ready, joins its drain and
// records the failure.
func (m *Manager) abort(e *errors.E) bool {
	if m.cmd != nil {
		if err := killTree(m.cmd); err != nil {
			m.log.Warn("kill gateway process", m.log.Args("pid", m.pid, "error", err.Error()))
		}
		waitClosed(m.drained, shutdownWait)
	}
	m.reset(Failed)
	return m.fail(e)
}

func (m *Manager) fail(e *errors.E) bool {
	m.state = Failed
	m.started = false
	m.lastErr = e
	m.log.Error("failed to initialize SQL library", m.log.Args("kind", string(e.Kind), "error", e.Error()))
	return false
}

func (m *Manager) reset(s State) {
	m.cmd = nil
	m.pid = 0
	m.started = false
	m.state = s
}

func (m *Manager) expandArgs() []string {
	port := strconv.Itoa(m.opts.Port)
	argv := make([]string, len(m.opts.Command))
	for i, a := range m.opts.Command {
		argv[i] = strings.ReplaceAll(a, portPlaceholder, port)
	}
	return argv
}

// closed reports whether ch is closed. A nil channel is never closed.
func closed(ch chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func waitClosed(ch chan struct{}, d time.Duration) bool {
	if ch == nil {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

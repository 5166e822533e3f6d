// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"io"

	"github.com/pterm/pterm"

	"opensearchsql/cli/internal/config"
	"opensearchsql/cli/internal/endpoint"
	"opensearchsql/cli/internal/gateway"
	"opensearchsql/cli/internal/logging"
	"opensearchsql/cli/internal/session"
	"opensearchsql/cli/internal/verify"
)

// app bundles what one command invocation owns: the config, the log
// sink, the gateway process and the session on top of it.
type app struct {
	cfg  config.Config
	log  *pterm.Logger
	sink io.Closer
	gw   *gateway.Manager
	sess *session.Session
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flagVerbose {
		level = "debug"
	}
	log, sink, err := logging.OpenSink(level)
	if err != nil {
		pterm.Warning.Println(logging.PresentError("Logging disabled", err))
		log, sink = logging.Discard(), nil
	}

	gw := gateway.New(gateway.Options{
		Port:         cfg.Gateway.Port,
		Command:      cfg.Gateway.Command,
		Dir:          cfg.Gateway.Dir,
		ReadyMarker:  cfg.Gateway.ReadyMarker,
		ReadyTimeout: cfg.Gateway.ReadyTimeout(),
		Logger:       log,
	})
	v := verify.New(
		verify.WithTimeout(cfg.Cluster.VerifyTimeout()),
		verify.WithLogger(log),
	)
	sess := session.New(gw,
		session.WithVerifier(v),
		session.WithLogger(log),
		session.WithDefaults(clusterDefaults(cfg)),
	)
	return &app{cfg: cfg, log: log, sink: sink, gw: gw, sess: sess}, nil
}

func clusterDefaults(cfg config.Config) endpoint.Endpoint {
	return endpoint.Endpoint{
		Protocol: cfg.Cluster.Protocol,
		Host:     cfg.Cluster.Host,
		Port:     cfg.Cluster.Port,
	}
}

// connect brings the session to ClusterInitialized, reporting progress on
// the terminal. It returns a user-facing error on failure.
func (a *app) connect(ctx context.Context) error {
	ok := withSpinner("Starting SQL library", func() bool { return a.sess.Connect(ctx) })
	if !ok {
		return &userError{title: "Unable to start the SQL library", detail: a.sess.ErrorMessage(), err: a.sess.LastError()}
	}

	target := flagEndpoint
	awsAuth := flagAWSAuth || a.cfg.Cluster.AWSAuth
	credentials := ""
	if !awsAuth {
		creds, err := resolveCredentials(flagUser, target, a.cfg)
		if err != nil {
			return err
		}
		credentials = creds
	}
	insecure := flagInsecure || a.cfg.Cluster.IgnoreSSL

	ok = withSpinner("Verifying cluster", func() bool {
		return a.sess.Initialize(ctx, target, credentials, insecure, awsAuth)
	})
	if !ok {
		return &userError{title: "Unable to connect to OpenSearch", detail: a.sess.ErrorMessage(), err: a.sess.LastError()}
	}
	return nil
}

// close disconnects the session and stops the gateway.
func (a *app) close(ctx context.Context) {
	if a.sess.State() != session.Disconnected {
		_ = a.sess.Disconnect(ctx)
	}
	_ = a.sess.Close()
	if err := a.gw.Shutdown(); err != nil {
		a.log.Warn("gateway shutdown", a.log.Args("error", err.Error()))
	}
	if a.sink != nil {
		_ = a.sink.Close()
	}
}

// userError carries a headline and the session's message to the terminal.
// When the session recorded a typed failure, err is presented instead of
// detail so the user also gets a hint.
type userError struct {
	title  string
	detail string
	err    error
}

func (e *userError) Error() string {
	if e.err != nil {
		return logging.PresentError(e.title, e.err)
	}
	if e.detail == "" {
		return e.title
	}
	return e.title + ": " + logging.Mask(e.detail)
}

func (e *userError) Unwrap() error { return e.err }

// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package rpc is the typed entry point of the local SQL library gateway.
//
// The gateway exposes four unary gRPC methods on the service
// "opensearchsql.Gateway". Arguments travel as a google.protobuf.Struct keyed
// by argument name and every method answers with a google.protobuf.StringValue,
// so the contract needs no generated code on either side. Client is the
// CLI side; RegisterGatewayServer lets a Go process host the same contract.
package rpc

import (
	"context"
	"strings"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "opensearchsql.Gateway"

// Method names as registered by the gateway.
const (
	MethodInitializeConnection    = "initializeConnection"
	MethodInitializeAwsConnection = "initializeAwsConnection"
	MethodQueryExecution          = "queryExecution"
	MethodDisconnect              = "disconnect"
)

// Response markers returned by the gateway.
const (
	RespInitialized        = "Connection initialized"
	RespAlreadyInitialized = "Already initialized"
	RespErrorPrefix        = "Error:"
)

// ConnectionParams are the arguments of initializeConnection.
type ConnectionParams struct {
	Host      string
	Port      int
	Protocol  string
	Username  string
	Password  string
	IgnoreSSL bool
}

// QueryParams are the arguments of queryExecution.
type QueryParams struct {
	Query  string
	IsPPL  bool
	Format string
}

// Operations is the gateway contract. Every method returns the raw gateway
// response string; err is only set when the call itself failed.
type Operations interface {
	InitializeConnection(ctx context.Context, p ConnectionParams) (string, error)
	InitializeAwsConnection(ctx context.Context, host string) (string, error)
	QueryExecution(ctx context.Context, q QueryParams) (string, error)
	Disconnect(ctx context.Context) (string, error)
}

// EntryPoint is an open handle on the gateway.
type EntryPoint interface {
	Operations
	Close() error
}

// IsError reports whether a gateway response signals failure.
func IsError(resp string) bool {
	return strings.Contains(resp, RespErrorPrefix)
}

// IsSuccess reports whether an initialize response signals success.
// Anything that is not an error counts; the gateway also answers with
// informational text such as the resolved endpoints.
func IsSuccess(resp string) bool {
	if strings.Contains(resp, RespInitialized) || strings.Contains(resp, RespAlreadyInitialized) {
		return true
	}
	return !IsError(resp)
}

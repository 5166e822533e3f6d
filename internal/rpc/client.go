// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client implements EntryPoint over a gRPC connection to localhost.
type Client struct {
	conn *grpc.ClientConn
}

var _ EntryPoint = (*Client)(nil)

// Target returns the dial target for a gateway port.
func Target(port int) string {
	return fmt.Sprintf("localhost:%d", port)
}

// Dial opens a client for the gateway on port. The connection is plaintext
// and established lazily on the first call; extra options are appended to
// the defaults.
func Dial(ctx context.Context, port int, opts ...grpc.DialOption) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid gateway port %d", port)
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient(Target(port), dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) InitializeConnection(ctx context.Context, p ConnectionParams) (string, error) {
	return c.call(ctx, MethodInitializeConnection, map[string]any{
		"host":      p.Host,
		"port":      p.Port,
		"protocol":  p.Protocol,
		"username":  p.Username,
		"password":  p.Password,
		"ignoreSSL": p.IgnoreSSL,
	})
}

func (c *Client) InitializeAwsConnection(ctx context.Context, host string) (string, error) {
	return c.call(ctx, MethodInitializeAwsConnection, map[string]any{"host": host})
}

func (c *Client) QueryExecution(ctx context.Context, q QueryParams) (string, error) {
	return c.call(ctx, MethodQueryExecution, map[string]any{
		"query":  q.Query,
		"isPPL":  q.IsPPL,
		"format": q.Format,
	})
}

func (c *Client) Disconnect(ctx context.Context) (string, error) {
	return c.call(ctx, MethodDisconnect, nil)
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) call(ctx context.Context, method string, args map[string]any) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("%s: client closed", method)
	}
	req, err := structpb.NewStruct(args)
	if err != nil {
		return "", fmt.Errorf("%s: encode arguments: %w", method, err)
	}
	resp := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return "", err
	}
	return resp.GetValue(), nil
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

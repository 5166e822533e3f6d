// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GatewayServer is implemented by a process hosting the gateway contract.
type GatewayServer interface {
	Operations
}

// RegisterGatewayServer registers srv on s under ServiceName.
func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodInitializeConnection,
			Handler: unary(MethodInitializeConnection, func(ctx context.Context, srv GatewayServer, args *structpb.Struct) (string, error) {
				return srv.InitializeConnection(ctx, ConnectionParams{
					Host:      stringArg(args, "host"),
					Port:      int(args.GetFields()["port"].GetNumberValue()),
					Protocol:  stringArg(args, "protocol"),
					Username:  stringArg(args, "username"),
					Password:  stringArg(args, "password"),
					IgnoreSSL: args.GetFields()["ignoreSSL"].GetBoolValue(),
				})
			}),
		},
		{
			MethodName: MethodInitializeAwsConnection,
			Handler: unary(MethodInitializeAwsConnection, func(ctx context.Context, srv GatewayServer, args *structpb.Struct) (string, error) {
				return srv.InitializeAwsConnection(ctx, stringArg(args, "host"))
			}),
		},
		{
			MethodName: MethodQueryExecution,
			Handler: unary(MethodQueryExecution, func(ctx context.Context, srv GatewayServer, args *structpb.Struct) (string, error) {
				return srv.QueryExecution(ctx, QueryParams{
					Query:  stringArg(args, "query"),
					IsPPL:  args.GetFields()["isPPL"].GetBoolValue(),
					Format: stringArg(args, "format"),
				})
			}),
		},
		{
			MethodName: MethodDisconnect,
			Handler: unary(MethodDisconnect, func(ctx context.Context, srv GatewayServer, _ *structpb.Struct) (string, error) {
				return srv.Disconnect(ctx)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "opensearchsql/gateway.proto",
}

type handlerFunc func(ctx context.Context, srv GatewayServer, args *structpb.Struct) (string, error)

// unary adapts a typed handler to the grpc.MethodDesc handler signature,
// running it through the server's interceptor when one is installed.
func unary(method string, h handlerFunc) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			out, err := h(ctx, srv.(GatewayServer), req.(*structpb.Struct))
			if err != nil {
				return nil, err
			}
			return wrapperspb.String(out), nil
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, call)
	}
}

func stringArg(args *structpb.Struct, key string) string {
	return args.GetFields()[key].GetStringValue()
}

package rpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/example/abacus/internal/security"
)

// correlationIDKey is the metadata key carrying the correlation id.
const correlationIDKey = "x-correlation-id"

func correlationInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var cid string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(correlationIDKey); len(v) > 0 {
			cid = v[0]
		}
	}
	cid = security.NormalizeCorrelationID(cid)
	_ = grpc.SetHeader(ctx, metadata.Pairs(correlationIDKey, cid))
	return handler(security.WithCorrelationID(ctx, cid), req)
}

func loggingInterceptor(l *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		l.Log(ctx, level, "grpc_request",
			"cid", security.CorrelationIDFromContext(ctx),
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func allowlistInterceptor(allow security.Allowlist) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if len(allow) > 0 {
			p, ok := peer.FromContext(ctx)
			if !ok || p.Addr == nil || !allow.AllowsAddr(p.Addr.String()) {
				return nil, status.Error(codes.PermissionDenied, "client address not allowed")
			}
		}
		return handler(ctx, req)
	}
}

// propagateCorrelationID forwards the caller's correlation id to the server.
func propagateCorrelationID(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if cid := security.CorrelationIDFromContext(ctx); cid != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, correlationIDKey, cid)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const mdAuthorization = "authorization"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

const defaultCallTimeout = 10 * time.Second

// UnaryServerInterceptor logs every call, recovers panics and puts a deadline
// on calls that came without one.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
			defer cancel()
		}
		defer observe("unary", info.FullMethod, time.Now(), &err)
		return handler(ctx, req)
	}
}

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer observe("stream", info.FullMethod, time.Now(), &err)
		return handler(srv, ss)
	}
}

// observe must be deferred directly so recover sees the handler's panic.
func observe(kind, method string, start time.Time, errp *error) {
	if r := recover(); r != nil {
		slog.Error("grpc handler panic",
			"kind", kind,
			"method", method,
			"panic", r,
			"stack", string(debug.Stack()))
		*errp = status.Error(codes.Internal, "internal server error")
	}

	code := status.Code(*errp)
	lvl := slog.LevelInfo
	switch code {
	case codes.OK, codes.NotFound, codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
	default:
		lvl = slog.LevelWarn
	}
	slog.Log(context.Background(), lvl, "grpc "+kind,
		"method", method,
		"code", code.String(),
		"dur_ms", time.Since(start).Milliseconds())
}

// AuthUnaryInterceptor requires "authorization: Bearer <jwt>" metadata on
// directory calls. Health checks stay open.
func AuthUnaryInterceptor(v TokenVerifier) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+DirectoryServiceName+"/") {
			return handler(ctx, req)
		}
		token, err := bearerFromMD(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := v.Verify(token); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}

func bearerFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	auth := first(md.Get(mdAuthorization))
	if auth == "" {
		return "", status.Error(codes.Unauthenticated, "missing authorization")
	}
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") || len(auth) <= 7 {
		return "", status.Error(codes.Unauthenticated, "invalid authorization")
	}
	return strings.TrimSpace(auth[7:]), nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

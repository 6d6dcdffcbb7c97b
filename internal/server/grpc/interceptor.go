package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
)

func firstHeader(ctx context.Context, name string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(name); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod != rpc.MutateMethod && info.FullMethod != rpc.QueryMethod {
		return handler(ctx, req)
	}

	accessToken := firstHeader(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	operator, err := auth.OperatorFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(auth.WithOperator(ctx, operator), req)
}

func (s *GRPCServer) requestLogInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "request",
		"method", info.FullMethod,
		"request_id", firstHeader(ctx, common.RequestIDHeaderName),
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// Package grpc serves fieldsync.v1.DataService and the standard health
// service over gRPC.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
	"github.com/dmitrijs2005/fieldsync/internal/server/services"
)

type GRPCServer struct {
	address   string
	calendars *services.CalendarService
	logger    logging.Logger
	jwtSecret []byte
	health    *health.Server
}

func NewGRPCServer(a string, l logging.Logger, cs *services.CalendarService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    logging.OrNop(l).With("module", "grpc_server"),
		calendars: cs,
		jwtSecret: []byte(secretKey),
		health:    health.NewServer(),
	}
}

// newServer builds the gRPC server with DataService and health registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestLogInterceptor, s.accessTokenInterceptor))
	rpc.RegisterDataServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

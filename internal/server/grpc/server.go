// Package grpc serves the standard gRPC health-checking protocol. The
// overall status is SERVING while the process runs; the "stats" service
// follows the statistics change feed.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/coursesell/internal/logging"
)

// StatsService is the health service name reported for the change feed.
const StatsService = "stats"

type GRPCServer struct {
	address string
	health  *health.Server
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger) *GRPCServer {
	h := health.NewServer()
	h.SetServingStatus(StatsService, healthgrpc.HealthCheckResponse_NOT_SERVING)

	return &GRPCServer{
		address: a,
		health:  h,
		logger:  l.With("module", "grpc_server"),
	}
}

// SetStatsHealthy reports whether the change feed is subscribed. It matches
// the aggregator's health hook.
func (s *GRPCServer) SetStatsHealthy(healthy bool) {
	status := healthgrpc.HealthCheckResponse_NOT_SERVING
	if healthy {
		status = healthgrpc.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(StatsService, status)
}

func (s *GRPCServer) register(srv *grpc.Server) {
	healthgrpc.RegisterHealthServer(srv, s.health)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	s.register(srv)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

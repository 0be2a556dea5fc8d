// Package grpc runs the operational gRPC endpoint: the standard
// grpc.health.v1 service reporting whether the server's dependencies answer.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported alongside the overall ("") status.
const ServiceName = "gatekeeper"

const probeTimeout = 2 * time.Second

// Check is one dependency probed for health, e.g. the database pool.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	logger   logging.Logger
	interval time.Duration
	checks   []Check
	health   *health.Server
}

func NewGRPCServer(address string, l logging.Logger, interval time.Duration, checks ...Check) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &GRPCServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		interval: interval,
		checks:   checks,
		health:   health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on listen until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe pings every check and publishes the combined status.
func (s *GRPCServer) probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING

	for _, c := range s.checks {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := c.Ping(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "health check failed", "check", c.Name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

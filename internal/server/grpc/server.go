// Package grpc serves the standard grpc.health.v1 service. Serving status
// follows a periodic database ping.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/betclever/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check service name of the portal backend.
const ServiceName = "betclever.Portal"

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	ping     func(context.Context) error
	interval time.Duration
}

// NewGRPCServer builds the server. ping may be nil, in which case the
// service always reports SERVING.
func NewGRPCServer(addr string, l logging.Logger, ping func(context.Context) error, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &GRPCServer{
		address:  addr,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		ping:     ping,
		interval: interval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.checkHealth(ctx)
	go s.watchHealth(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *GRPCServer) checkHealth(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.ping != nil {
		pctx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.ping(pctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(ctx, "database ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

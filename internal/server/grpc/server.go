// Package grpc serves the standard grpc.health.v1 service so orchestrators
// can probe the process without going through the HTTP API.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "gophauth.Auth"

const (
	defaultCheckInterval = 10 * time.Second
	stopTimeout          = 5 * time.Second
)

// Checker reports whether the service can do its job, typically a database ping.
type Checker func(ctx context.Context) error

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	checker  Checker
	interval time.Duration
}

type Option func(*GRPCServer)

// WithChecker makes the server poll check every interval and report
// NOT_SERVING while it fails.
func WithChecker(check Checker, interval time.Duration) Option {
	return func(s *GRPCServer) {
		s.checker = check
		if interval > 0 {
			s.interval = interval
		}
	}
}

func NewGRPCServer(address string, l logging.Logger, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		interval: defaultCheckInterval,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor),
		grpc.ChainStreamInterceptor(s.streamLoggingInterceptor),
	)
	healthpb.RegisterHealthServer(srv, s.health)

	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	if s.checker != nil {
		go s.watch(ctx)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		// open Watch streams see NOT_SERVING before the drain
		s.health.Shutdown()
		s.stop(srv)
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	return srv.Serve(listen)
}

func (s *GRPCServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *GRPCServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *GRPCServer) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.checker(checkCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn(ctx, "health check failed", "error", err)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// stop drains gracefully but gives up after stopTimeout, since Watch
// streams stay open as long as their clients want.
func (s *GRPCServer) stop(srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		srv.Stop()
	}
}

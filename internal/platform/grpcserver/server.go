package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/cicconee/cbledger/internal/platform/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

type Server struct {
	grpcServer  *grpc.Server
	health      *health.Server
	lis         net.Listener
	stopTimeout time.Duration
}

type Options struct {
	Addr                string
	GracefulStopTimeout time.Duration
}

func New(opts Options, log *logging.Logger, register func(s *grpc.Server)) (*Server, error) {
	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, err
	}

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(log)))

	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(gs, hs)

	reflection.Register(gs)

	if register != nil {
		register(gs)
	}

	log.Info("gRPC server created", "addr", lis.Addr().String())

	stopTimeout := opts.GracefulStopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}

	return &Server{
		grpcServer:  gs,
		health:      hs,
		lis:         lis,
		stopTimeout: stopTimeout,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

func (s *Server) Serve(log *logging.Logger) error {
	log.Info("gRPC server starting")
	return s.grpcServer.Serve(s.lis)
}

// GracefulStop marks the server NOT_SERVING, drains in-flight calls and forces a stop once the
// timeout elapses.
func (s *Server) GracefulStop(log *logging.Logger) {
	log.Info("gRPC server graceful stopping")
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.stopTimeout):
		log.Warn("gRPC graceful stop timed out, forcing stop", "timeout", s.stopTimeout)
		s.grpcServer.Stop()
	}
	log.Info("gRPC server stopped")
}

func unaryLogger(log *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service for a process that
// otherwise speaks HTTP. Named components report their own status.
type HealthServer struct {
	server *gogrpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewHealthServer builds a health-only gRPC server with trace propagation.
func NewHealthServer(logger *zap.Logger) *HealthServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	return &HealthServer{server: server, health: healthServer, logger: logger}
}

// SetServing marks a component as serving or not serving. The empty name
// is the overall process status.
func (s *HealthServer) SetServing(component string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(component, status)
}

// Serve accepts health checks on lis until ctx ends.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	if lis == nil {
		return fmt.Errorf("health listener is required")
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(lis)
	}()
	s.logger.Info("health server listening", zap.String("addr", lis.Addr().String()))

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.server.GracefulStop()
		err := <-serveErr
		if err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
			return err
		}
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
			return fmt.Errorf("serve health: %w", err)
		}
		return nil
	}
}

// WaitForHealth blocks until the gRPC health check reports SERVING or the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logger *zap.Logger) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := 200 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			logger.Debug("health check serving", zap.String("service", service))
			return nil
		}
		if err != nil {
			logger.Debug("waiting for health", zap.String("service", service), zap.Error(err))
		} else {
			logger.Debug("waiting for health", zap.String("service", service), zap.Stringer("status", response.GetStatus()))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}

		if backoff < time.Second {
			backoff = min(backoff*2, time.Second)
		}
	}
}

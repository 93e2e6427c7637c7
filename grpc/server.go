// Package grpc exposes the standard gRPC health service of the relay.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported by the health service alongside the overall status.
const ServiceName = "chat-relay"

type HealthServer struct {
	log             *slog.Logger
	server          *grpc.Server
	health          *health.Server
	shutdownTimeout time.Duration
}

func NewHealthServer(log *slog.Logger, shutdownTimeout time.Duration) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return &HealthServer{log: log, server: s, health: hs, shutdownTimeout: shutdownTimeout}
}

func (h *HealthServer) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return h.Serve(ctx, listener)
}

// Serve reports SERVING until ctx is canceled, then NOT_SERVING while it stops.
func (h *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, h.stop)
	defer stop()

	h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
	if err := h.server.Serve(listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// stop lets in-flight checks finish; open Watch streams are cut after the timeout.
func (h *HealthServer) stop() {
	h.health.Shutdown()

	done := make(chan struct{})
	go func() {
		h.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(h.shutdownTimeout):
		h.server.Stop()
	}
}

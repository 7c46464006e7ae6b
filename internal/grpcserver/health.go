package grpcserver

import (
	"errors"
	"log/slog"
	"net"

	gp "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the grpc.health.v1 service name reported for the gateway.
const ServiceName = "checkout.v1.PaymentIntentGateway"

// HealthServer exposes gateway liveness over grpc.health.v1 so orchestrators
// that probe gRPC can watch the process.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(gp.UnaryServerInterceptor),
		grpc.StreamInterceptor(gp.StreamServerInterceptor),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	gp.Register(srv)

	return &HealthServer{srv: srv, health: hs, logger: logger.With("component", "grpc-health")}
}

// Serve marks the gateway SERVING and blocks until Stop. A Stop that lands
// before Serve starts is not an error.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	h.logger.Info("serving gRPC health", "addr", lis.Addr().String())
	if err := h.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Drain flips every service to NOT_SERVING. Called as soon as shutdown starts.
func (h *HealthServer) Drain() {
	h.health.Shutdown()
}

func (h *HealthServer) Stop() {
	h.Drain()
	h.srv.GracefulStop()
	h.logger.Info("gRPC health stopped")
}

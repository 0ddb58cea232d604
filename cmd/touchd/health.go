package main

import (
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthServiceName is the service name probes pass to Check; the empty
// name reports the same status.
const healthServiceName = "touchd"

// healthServer exposes the standard gRPC health service so supervisors can
// probe touchd without speaking HTTP.
type healthServer struct {
	server *grpc.Server
	health *health.Server
}

func newHealthServer() *healthServer {
	h := &healthServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

// ListenAndServe binds addr and serves until Shutdown.
func (h *healthServer) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Printf("gRPC health service listening on %s", lis.Addr())
	return h.Serve(lis)
}

func (h *healthServer) Serve(lis net.Listener) error {
	return h.server.Serve(lis)
}

// Shutdown reports NOT_SERVING to watchers, then stops the server once
// in-flight calls finish.
func (h *healthServer) Shutdown() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

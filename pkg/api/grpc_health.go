package api

import (
	"net"

	"github.com/cuemby/dispatch/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthServer is a tiny gRPC server hosting only the standard
// grpc.health.v1.Health service, for orchestrators that probe liveness over
// gRPC rather than HTTP. It uses grpc-go's own pre-compiled health service
// (google.golang.org/grpc/health) so the scheduling domain needs no
// protobuf schema of its own.
type GRPCHealthServer struct {
	grpcSrv *grpc.Server
	health  *health.Server
}

// NewGRPCHealthServer constructs the server and marks the named service
// SERVING.
func NewGRPCHealthServer(serviceName string) *GRPCHealthServer {
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCHealthServer{grpcSrv: srv, health: hs}
}

// SetServing updates the reported status for serviceName.
func (g *GRPCHealthServer) SetServing(serviceName string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus(serviceName, status)
}

// Serve starts accepting connections on addr. Blocks until the listener or
// server is closed.
func (g *GRPCHealthServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.WithComponent("grpc-health").Info().Str("addr", addr).Msg("gRPC health service listening")
	return g.grpcSrv.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (g *GRPCHealthServer) Stop() {
	g.grpcSrv.GracefulStop()
}

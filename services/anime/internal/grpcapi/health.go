// Package grpcapi serves the gRPC health protocol for the anime service.
package grpcapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the service name reported next to the overall ("") status.
const HealthService = "anime"

// NewServer returns a gRPC server exposing grpc.health.v1.Health and server
// reflection. Both statuses start as NOT_SERVING until TrackHealth reports
// otherwise.
func NewServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

// TrackHealth runs check every interval and mirrors the result into hs until ctx
// ends, at which point every status is set to NOT_SERVING. It blocks.
func TrackHealth(ctx context.Context, hs *health.Server, interval time.Duration, check func(context.Context) error, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		cctx, cancel := context.WithTimeout(ctx, interval)
		err := check(cctx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			log.Info("grpc health status changed", zap.String("status", status.String()), zap.Error(err))
			last = status
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(HealthService, status)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}

package monitor

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jathurchan/seatlicense/logger"
)

// ServiceName is the gRPC health service name reported for the license server.
const ServiceName = "seatlicense.LicenseServer"

// DefaultHealthPollInterval is how often the health status follows the server state.
const DefaultHealthPollInterval = time.Second

// HealthServer reports the license server state through the standard gRPC
// health checking protocol.
type HealthServer struct {
	src      StatsSource
	health   *health.Server
	grpc     *grpc.Server
	interval time.Duration
	logger   logger.Logger
}

// NewHealthServer creates a health server following src. interval <= 0 uses DefaultHealthPollInterval.
func NewHealthServer(src StatsSource, interval time.Duration, log logger.Logger) *HealthServer {
	if interval <= 0 {
		interval = DefaultHealthPollInterval
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	hs := &HealthServer{
		src:      src,
		health:   health.NewServer(),
		grpc:     grpc.NewServer(),
		interval: interval,
		logger:   log.WithComponent("health"),
	}
	healthpb.RegisterHealthServer(hs.grpc, hs.health)
	hs.update()
	return hs
}

// update copies the server state into the health status of both the named
// and the overall ("") service.
func (hs *HealthServer) update() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if hs.src.IsRunning() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus("", status)
	hs.health.SetServingStatus(ServiceName, status)
}

// Serve answers health checks on ln until ctx is cancelled.
func (hs *HealthServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- hs.grpc.Serve(ln) }()
	hs.logger.Infow("gRPC health listening", "address", ln.Addr().String())

	ticker := time.NewTicker(hs.interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			hs.update()
		case <-ctx.Done():
			hs.health.Shutdown()
			hs.grpc.GracefulStop()
			<-errCh
			return nil
		}
	}
}

// ListenAndServe binds address and calls Serve.
func (hs *HealthServer) ListenAndServe(ctx context.Context, address string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return hs.Serve(ctx, ln)
}

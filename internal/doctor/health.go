package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/damien/internal/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

const healthTimeout = 2 * time.Second

// checkSpeechHealth probes the standard gRPC health service of a speech engine.
func checkSpeechHealth(ctx context.Context, cfg config.Config) Check {
	endpoint := strings.TrimSpace(cfg.Speech.HealthGRPC)
	resp, err := probeHealth(ctx, endpoint, healthTimeout)
	if err != nil {
		return Check{Name: "speech.health", Pass: false, Message: err.Error()}
	}

	status := resp.GetStatus()
	message := fmt.Sprintf("%s at %s", status.String(), endpoint)
	if cfg.Debug.EnableGRPCDump {
		if raw, err := protojson.Marshal(resp); err == nil {
			message = message + " " + string(raw)
		}
	}
	return Check{
		Name:    "speech.health",
		Pass:    status == healthpb.HealthCheckResponse_SERVING,
		Message: message,
	}
}

func probeHealth(ctx context.Context, endpoint string, timeout time.Duration) (*healthpb.HealthCheckResponse, error) {
	if endpoint == "" {
		return nil, errors.New("speech.health_grpc is empty")
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial health grpc %q: %w", endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	if err := waitForReady(probeCtx, conn); err != nil {
		return nil, fmt.Errorf("wait for health grpc readiness: %w", err)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(probeCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return resp, nil
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}

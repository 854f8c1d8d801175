package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "http")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, healthcheck.NewHandler(version.GetVersion()))
	if srv == nil {
		t.Fatal("startMetricsServer should not return nil")
	}
	waitForServer(t, port)

	tests := []struct {
		path     string
		wantBody string
	}{
		{path: "/metrics"},
		{path: "/healthz"},
		{path: "/livez", wantBody: "ok"},
		{path: "/readyz", wantBody: "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(fmt.Sprintf("http://localhost:%d%s", port, tt.path))
			if err != nil {
				t.Fatalf("failed to get %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200 for %s, got %d", tt.path, resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if len(body) == 0 {
				t.Errorf("%s should return non-empty response", tt.path)
			}
			if tt.wantBody != "" && string(body) != tt.wantBody {
				t.Errorf("expected %q from %s, got %q", tt.wantBody, tt.path, string(body))
			}
		})
	}
}

func TestStartMetricsServer_ReadinessReflectsCheckers(t *testing.T) {
	logger := log.WithField("test", "http-readyz")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", func(context.Context) error {
		return errors.New("connection refused")
	}, time.Second))

	startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, handler)
	waitForServer(t, port)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/readyz", port))
	if err != nil {
		t.Fatalf("failed to get /readyz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 for /readyz, got %d", resp.StatusCode)
	}
}

func TestStartMetricsServer_Shutdown(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, healthcheck.NewHandler(version.GetVersion()))
	waitForServer(t, port)

	cancel()
	time.Sleep(200 * time.Millisecond)

	if _, err := http.Get(fmt.Sprintf("http://localhost:%d/livez", port)); err == nil {
		t.Error("server should be stopped after context cancellation")
	}
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

func TestStartMetricsServer_BusyAddr(t *testing.T) {
	logger := log.WithField("test", "http-busy")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	// сервер создаётся, ошибка ListenAndServe только логируется
	srv := startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, healthcheck.NewHandler(version.GetVersion()))
	if srv == nil {
		t.Error("startMetricsServer should not return nil even with busy addr")
	}
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, port int) {
	t.Helper()

	addr := fmt.Sprintf("localhost:%d", port)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on %s did not start", addr)
}

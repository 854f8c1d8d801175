package main

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

func TestSetupLogger(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	tests := []struct {
		level   string
		want    log.Level
		wantErr bool
	}{
		{level: "debug", want: log.DebugLevel},
		{level: "warn", want: log.WarnLevel},
		{level: "info", want: log.InfoLevel},
		{level: "loud", want: log.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := setupLogger(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setupLogger(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if log.GetLevel() != tt.want {
				t.Fatalf("expected level %s, got %s", tt.want, log.GetLevel())
			}
		})
	}
}

func TestLoadConfig_FromProcessEnv(t *testing.T) {
	t.Setenv("STOREFRONT_GRPC_ADDR", "localhost:50052")
	t.Setenv("STOREFRONT_LOG_LEVEL", "DEBUG")

	cfg, err := app.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GRPCAddr != "localhost:50052" {
		t.Fatalf("unexpected grpc addr: %s", cfg.GRPCAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		t.Fatalf("unexpected logger error: %v", err)
	}
	log.SetLevel(log.InfoLevel)
}

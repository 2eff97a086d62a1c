package observability

import (
	"context"
	"io"
	"testing"

	"github.com/riskibarqy/goldstats-live/internal/config"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
)

func TestInitUptrace_DisabledClearsMirror(t *testing.T) {
	mirrored := false
	logging.SetMirror(func(context.Context, logging.Level, string, ...any) { mirrored = true })
	t.Cleanup(func() { logging.SetMirror(nil) })

	cfg := config.Config{
		UptraceEnabled: true,
		UptraceDSN:     " ",
		ServiceName:    "goldstats-live-api",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
	}

	logger := logging.NewJSONWriter(io.Discard, logging.LevelInfo)
	shutdown, err := InitUptrace(cfg, logger)
	if err != nil {
		t.Fatalf("init uptrace: %v", err)
	}
	logger.Info("after init")
	if mirrored {
		t.Fatalf("expected mirror to be removed when uptrace is disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown uptrace: %v", err)
	}
}

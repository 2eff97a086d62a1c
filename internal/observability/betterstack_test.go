package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/goldstats-live/internal/config"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
)

type shippedLogs struct {
	mu      sync.Mutex
	auth    string
	entries []map[string]any
}

func (s *shippedLogs) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
			return
		}
		var batch []map[string]any
		if err := sonic.Unmarshal(body, &batch); err != nil {
			t.Errorf("expected JSON array body, got %s: %v", body, err)
		}
		s.mu.Lock()
		s.auth = r.Header.Get("Authorization")
		s.entries = append(s.entries, batch...)
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func TestInitBetterStackLogger_ShipsErrorBatch(t *testing.T) {
	t.Parallel()

	shipped := &shippedLogs{}
	server := httptest.NewServer(shipped.handler(t))
	defer server.Close()

	cfg := config.Config{
		BetterStackEnabled:  true,
		BetterStackEndpoint: server.URL,
		BetterStackToken:    "secret-token",
		BetterStackTimeout:  2 * time.Second,
		BetterStackMinLevel: logging.LevelError,
		LogLevel:            logging.LevelError,
		ServiceName:         "goldstats-live-api",
		AppEnv:              config.EnvDev,
	}

	logger, shutdown, err := InitBetterStackLogger(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}

	logger.ErrorContext(context.Background(), "live channel failed", "match_id", "77")
	logger.Error("snapshot load failed", "match_id", "78")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}

	shipped.mu.Lock()
	defer shipped.mu.Unlock()
	if shipped.auth != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", shipped.auth)
	}
	if len(shipped.entries) != 2 {
		t.Fatalf("expected 2 shipped entries, got %d", len(shipped.entries))
	}
	first := shipped.entries[0]
	if first["msg"] != "live channel failed" || first["match_id"] != "77" || first["service"] != "goldstats-live-api" {
		t.Fatalf("unexpected shipped entry: %v", first)
	}
}

func TestInitBetterStackLogger_RespectsMinLevel(t *testing.T) {
	t.Parallel()

	shipped := &shippedLogs{}
	server := httptest.NewServer(shipped.handler(t))
	defer server.Close()

	cfg := config.Config{
		BetterStackEnabled:  true,
		BetterStackEndpoint: server.URL,
		BetterStackTimeout:  2 * time.Second,
		BetterStackMinLevel: logging.LevelError,
		LogLevel:            logging.LevelError,
		ServiceName:         "goldstats-live-api",
		AppEnv:              config.EnvDev,
	}

	logger, shutdown, err := InitBetterStackLogger(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}

	logger.InfoContext(context.Background(), "info log should not be shipped")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}

	shipped.mu.Lock()
	defer shipped.mu.Unlock()
	if len(shipped.entries) != 0 {
		t.Fatalf("expected no shipped entries, got %d", len(shipped.entries))
	}
}

func TestNormalizeBetterStackEndpoint(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                             "",
		"  in.logs.example.com ":       "https://in.logs.example.com",
		"http://localhost:9000/ingest": "http://localhost:9000/ingest",
	}
	for in, want := range cases {
		if got := normalizeBetterStackEndpoint(in); got != want {
			t.Fatalf("normalize %q: expected %q, got %q", in, want, got)
		}
	}
}

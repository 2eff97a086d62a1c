package goldstats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/riskibarqy/goldstats-live/internal/platform/resilience"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		HTTPClient:     server.Client(),
		BaseURL:        server.URL + "/",
		APIKey:         "secret",
		MaxRetries:     2,
		RetryBackoff:   time.Millisecond,
		CircuitBreaker: breaker,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_RoutesAndHeaders(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotKey = r.URL.Path, r.URL.RawQuery, r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}, resilience.CircuitBreakerConfig{})

	ctx := context.Background()
	cases := []struct {
		call func() ([]byte, error)
		path string
	}{
		{func() ([]byte, error) { return client.MatchHeader(ctx, "42") }, "/goldstats/match/42"},
		{func() ([]byte, error) { return client.NextMatches(ctx, "42") }, "/goldstats/match/42/next-matches"},
		{func() ([]byte, error) { return client.LastMatches(ctx, "42") }, "/goldstats/match/42/last-matches"},
		{func() ([]byte, error) { return client.MatchAnalysis(ctx, "42") }, "/goldstats/match/42/analysis"},
		{func() ([]byte, error) { return client.MatchStats(ctx, "42") }, "/matches/42/stats"},
		{func() ([]byte, error) { return client.LeagueDetails(ctx, "8") }, "/leagues/8/details"},
		{func() ([]byte, error) { return client.RoundFixtures(ctx, "8", "301") }, "/leagues/8/rounds/301/fixtures"},
		{func() ([]byte, error) { return client.TeamSquad(ctx, "10") }, "/teams/10/squad"},
	}
	for _, tc := range cases {
		raw, err := tc.call()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.path, err)
		}
		if string(raw) != `{"success":true,"data":{}}` {
			t.Fatalf("%s: expected raw body passthrough, got=%s", tc.path, raw)
		}
		if gotPath != tc.path {
			t.Fatalf("expected path %s, got=%s", tc.path, gotPath)
		}
		if gotKey != "secret" {
			t.Fatalf("expected api key header, got=%q", gotKey)
		}
	}

	if _, err := client.Home(ctx, "2026-10-15"); err != nil {
		t.Fatalf("home: unexpected error: %v", err)
	}
	if gotPath != "/goldstats/home" || gotQuery != "date=2026-10-15" {
		t.Fatalf("unexpected home request path=%s query=%s", gotPath, gotQuery)
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, resilience.CircuitBreakerConfig{})

	raw, err := client.MatchStats(context.Background(), "1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(raw) != `{"ok":true}` || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("unexpected result raw=%s calls=%d", raw, calls)
	}
}

func TestClient_DoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"success":false}`, http.StatusNotFound)
	}, resilience.CircuitBreakerConfig{})

	_, err := client.MatchHeader(context.Background(), "404")
	if !IsNotFound(err) {
		t.Fatalf("expected not found status error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected single attempt, got %d", got)
	}
}

func TestClient_CircuitOpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})

	if _, err := client.MatchAnalysis(context.Background(), "1"); err == nil {
		t.Fatalf("expected failure")
	}
	before := atomic.LoadInt32(&calls)

	_, err := client.MatchAnalysis(context.Background(), "1")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatalf("expected no request while circuit is open")
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatalf("expected error without base url")
	}
}

func TestAbbreviateBody_CutsOnRuneBoundary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "short", body: "  not found  ", want: "not found"},
		{name: "ascii", body: strings.Repeat("a", 300), want: strings.Repeat("a", maxLoggedBody) + "..."},
		{name: "multibyte at limit", body: strings.Repeat("a", maxLoggedBody-1) + strings.Repeat("é", 10), want: strings.Repeat("a", maxLoggedBody-1) + "..."},
		{name: "cjk", body: strings.Repeat("界", 100), want: strings.Repeat("界", maxLoggedBody/3) + "..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := abbreviateBody([]byte(tc.body))
			if !utf8.ValidString(got) {
				t.Fatalf("expected valid utf-8, got %q", got)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

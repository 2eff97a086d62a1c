package goldstats

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/riskibarqy/goldstats-live/internal/platform/resilience"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 6 << 20
	maxLoggedBody   = 240
)

var errGoldstatsTransient = crerr.New("goldstats transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads the statistics API. It returns raw 2xx bodies; decoding is left to
// the normalizers.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	retryBackoff   time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.Group[[]byte]
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, crerr.New("goldstats base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, crerr.Wrap(err, "parse goldstats base url")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	breaker := resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("goldstats circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBackoff:   backoff,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

func (c *Client) MatchHeader(ctx context.Context, matchID string) ([]byte, error) {
	return c.get(ctx, "/goldstats/match/"+url.PathEscape(matchID), nil)
}

func (c *Client) NextMatches(ctx context.Context, matchID string) ([]byte, error) {
	return c.get(ctx, "/goldstats/match/"+url.PathEscape(matchID)+"/next-matches", nil)
}

func (c *Client) LastMatches(ctx context.Context, matchID string) ([]byte, error) {
	return c.get(ctx, "/goldstats/match/"+url.PathEscape(matchID)+"/last-matches", nil)
}

func (c *Client) MatchAnalysis(ctx context.Context, matchID string) ([]byte, error) {
	return c.get(ctx, "/goldstats/match/"+url.PathEscape(matchID)+"/analysis", nil)
}

func (c *Client) MatchStats(ctx context.Context, matchID string) ([]byte, error) {
	return c.get(ctx, "/matches/"+url.PathEscape(matchID)+"/stats", nil)
}

func (c *Client) LeagueDetails(ctx context.Context, leagueID string) ([]byte, error) {
	return c.get(ctx, "/leagues/"+url.PathEscape(leagueID)+"/details", nil)
}

func (c *Client) RoundFixtures(ctx context.Context, leagueID, roundID string) ([]byte, error) {
	return c.get(ctx, "/leagues/"+url.PathEscape(leagueID)+"/rounds/"+url.PathEscape(roundID)+"/fixtures", nil)
}

func (c *Client) TeamSquad(ctx context.Context, teamID string) ([]byte, error) {
	return c.get(ctx, "/teams/"+url.PathEscape(teamID)+"/squad", nil)
}

func (c *Client) Home(ctx context.Context, date string) ([]byte, error) {
	query := url.Values{}
	if strings.TrimSpace(date) != "" {
		query.Set("date", date)
	}
	return c.get(ctx, "/goldstats/home", query)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "goldstats circuit breaker rejected request", "path", path, "state", c.breaker.State())
			return nil, fmt.Errorf("%w: statistics api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	raw, err, _ := c.flight.Do(fullURL, func() ([]byte, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: send request: %v", errGoldstatsTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errGoldstatsTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: api status=%d body=%s", errGoldstatsTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, &StatusError{Code: resp.StatusCode, Body: abbreviateBody(raw)}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("goldstats request failed")
	}
	c.logger.WarnContext(ctx, "goldstats request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// StatusError is a non-retryable, non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status=%d body=%s", e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the statistics API.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return stderrors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errGoldstatsTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// abbreviateBody keeps at most maxLoggedBody bytes, cut on a rune boundary.
func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxLoggedBody {
		return text
	}
	cut := maxLoggedBody
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

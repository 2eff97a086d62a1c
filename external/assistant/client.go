package assistant

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/goldstats-live/internal/domain/chat"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/riskibarqy/goldstats-live/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultTimeout = 30 * time.Second

var errAssistantTransient = crerr.New("assistant transient failure")

var tracer = otel.Tracer("goldstats-live/external/assistant")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client posts chat turns to the assistant endpoint.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

type replyPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		Message string `json:"message"`
	} `json:"data"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL, err := validateHTTPBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid assistant base url")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:         "goldstats-live",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	breaker := resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("assistant circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		timeout:        timeout,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

// Ask sends one chat turn. A decodable body is returned as a Reply whatever the
// status code; only transport and decode failures are errors.
func (c *Client) Ask(ctx context.Context, matchID string, req chat.Request) (chat.Reply, error) {
	ctx, span := tracer.Start(ctx, "assistant.Ask")
	defer span.End()

	endpoint := c.baseURL + "/chat/match/" + url.PathEscape(strings.TrimSpace(matchID))
	span.SetAttributes(
		attribute.String("assistant.url", endpoint),
		attribute.Int("assistant.history_len", len(req.History)),
	)

	var reply chat.Reply
	call := func() error {
		var err error
		reply, err = c.post(ctx, endpoint, req)
		return err
	}

	var err error
	if c.circuitEnabled {
		err = c.breaker.Execute(call, isCircuitFailure)
	} else {
		err = call()
	}
	if err != nil {
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "assistant circuit breaker rejected request", "state", c.breaker.State())
			err = crerr.Wrap(err, "assistant is temporarily unavailable")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return chat.Reply{}, err
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload chat.Request) (chat.Reply, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return chat.Reply{}, crerr.Wrap(err, "encode chat request")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(buf.B)

	if err := c.httpClient.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chat.Reply{}, crerr.Wrap(ctxErr, "assistant request canceled")
		}
		return chat.Reply{}, fmt.Errorf("%w: post %s: %v", errAssistantTransient, endpoint, err)
	}

	status := resp.StatusCode()
	var decoded replyPayload
	if err := sonic.Unmarshal(resp.Body(), &decoded); err != nil {
		if isRetryableStatus(status) {
			return chat.Reply{}, fmt.Errorf("%w: post %s status=%d", errAssistantTransient, endpoint, status)
		}
		return chat.Reply{}, crerr.Wrapf(err, "decode assistant reply status=%d", status)
	}
	if status/100 != 2 {
		c.logger.WarnContext(ctx, "assistant replied with error status", "status", status, "success", decoded.Success)
	}

	if decoded.Success && decoded.Data != nil {
		return chat.Reply{Success: true, Message: decoded.Data.Message}, nil
	}
	return chat.Reply{Success: decoded.Success, Message: decoded.Message}, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errAssistantTransient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == fasthttp.StatusRequestTimeout ||
		statusCode == fasthttp.StatusTooManyRequests ||
		statusCode >= fasthttp.StatusInternalServerError
}

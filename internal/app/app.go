package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/goldstats-live/external/assistant"
	"github.com/riskibarqy/goldstats-live/external/goldstats"
	"github.com/riskibarqy/goldstats-live/internal/config"
	"github.com/riskibarqy/goldstats-live/internal/domain/leagueview"
	"github.com/riskibarqy/goldstats-live/internal/interfaces/httpapi"
	"github.com/riskibarqy/goldstats-live/internal/livechannel"
	"github.com/riskibarqy/goldstats-live/internal/platform/cache"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
)

// App owns the HTTP server and the process-wide resources behind it: the
// snapshot worker pool and the shared live channel.
type App struct {
	Server *http.Server

	logger *logging.Logger
	pool   *ants.Pool
	live   *livechannel.Manager
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	feedClient, err := goldstats.NewClient(goldstats.ClientConfig{
		BaseURL:        cfg.GoldstatsBaseURL,
		APIKey:         cfg.GoldstatsAPIKey,
		Timeout:        cfg.GoldstatsTimeout,
		MaxRetries:     cfg.GoldstatsMaxRetries,
		RetryBackoff:   cfg.GoldstatsRetryBackoff,
		Logger:         logger.Named("goldstats"),
		CircuitBreaker: cfg.GoldstatsCircuit,
	})
	if err != nil {
		return nil, fmt.Errorf("build goldstats client: %w", err)
	}

	assistantClient, err := assistant.NewClient(assistant.ClientConfig{
		BaseURL:        cfg.AssistantBaseURL,
		Timeout:        cfg.AssistantTimeout,
		Logger:         logger.Named("assistant"),
		CircuitBreaker: cfg.AssistantCircuit,
	})
	if err != nil {
		return nil, fmt.Errorf("build assistant client: %w", err)
	}

	pool, err := ants.NewPool(cfg.SnapshotWorkers)
	if err != nil {
		return nil, fmt.Errorf("build snapshot worker pool: %w", err)
	}

	live := livechannel.NewManager(livechannel.Config{
		URL:               cfg.LiveSocketURL,
		Namespace:         cfg.LiveSocketNamespace,
		ReconnectAttempts: cfg.LiveSocketReconnectAttempts,
		ReconnectDelay:    cfg.LiveSocketReconnectDelay,
		PingInterval:      cfg.LiveSocketPingInterval,
		Logger:            logger.Named("livechannel"),
	})

	matchSvc := usecase.NewMatchSnapshotService(feedClient, pool, logger)
	leagueSvc := usecase.NewLeagueSnapshotService(feedClient, logger)
	homeSvc := usecase.NewHomeService(feedClient, logger)
	if cfg.CacheEnabled {
		leagueSvc.WithCache(cache.NewStore[leagueview.LeagueViewModel](cfg.CacheTTL))
		homeSvc.WithCache(cache.NewStore[leagueview.HomeListing](cfg.CacheTTL))
	}
	chatSvc := usecase.NewChatService(assistantClient, feedClient, logger)
	liveSvc := usecase.NewLiveSessionService(matchSvc, func() usecase.LiveChannel {
		return live.Acquire()
	}, logger)

	handler := httpapi.NewHandler(matchSvc, leagueSvc, homeSvc, chatSvc, liveSvc, httpapi.StreamConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PingInterval:   cfg.LiveStreamPingInterval,
		QueueSize:      cfg.LiveStreamQueueSize,
	}, logger)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
		pool:   pool,
		live:   live,
	}, nil
}

// Shutdown stops accepting requests, then drops the live channel and the worker
// pool. Hijacked live streams are not tracked by the server and end with the process.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	a.live.Close()
	if err := a.pool.ReleaseTimeout(shutdownPoolWait(ctx)); err != nil {
		a.logger.Warn("snapshot pool release timed out", "error", err)
	}
	return errors.Join(errs...)
}

func shutdownPoolWait(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 100*time.Millisecond {
			return left
		}
		return 100 * time.Millisecond
	}
	return time.Second
}

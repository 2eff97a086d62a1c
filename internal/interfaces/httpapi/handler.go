package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
)

type Handler struct {
	matchService  *usecase.MatchSnapshotService
	leagueService *usecase.LeagueSnapshotService
	homeService   *usecase.HomeService
	chatService   *usecase.ChatService
	liveService   *usecase.LiveSessionService
	logger        *logging.Logger
	validator     *validator.Validate
	upgrader      websocket.Upgrader
	stream        StreamConfig
}

// StreamConfig tunes the browser-facing live stream.
type StreamConfig struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	QueueSize      int
}

func NewHandler(
	matchService *usecase.MatchSnapshotService,
	leagueService *usecase.LeagueSnapshotService,
	homeService *usecase.HomeService,
	chatService *usecase.ChatService,
	liveService *usecase.LiveSessionService,
	stream StreamConfig,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if stream.PingInterval <= 0 {
		stream.PingInterval = 30 * time.Second
	}
	if stream.QueueSize <= 0 {
		stream.QueueSize = 64
	}

	return &Handler{
		matchService:  matchService,
		leagueService: leagueService,
		homeService:   homeService,
		chatService:   chatService,
		liveService:   liveService,
		logger:        logger,
		validator:     validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originAllowed(stream.AllowedOrigins),
		},
		stream: stream,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetHome(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetHome")
	defer span.End()

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	listing, err := h.homeService.ListByDate(ctx, date)
	if err != nil {
		h.logger.WarnContext(ctx, "list home matches failed", "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, listing)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	model, err := h.matchService.Load(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "load match snapshot failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, model)
}

func (h *Handler) GetLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeague")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	view, err := h.leagueService.Load(ctx, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "load league snapshot failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, view)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

var errUpgradeRequired = fmt.Errorf("%w: websocket upgrade required", usecase.ErrInvalidInput)

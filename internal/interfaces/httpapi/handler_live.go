package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/livechannel"
	"github.com/riskibarqy/goldstats-live/internal/platform/id"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
)

// Frames sent to the browser on the live stream.
const (
	StreamEventSnapshot     = "snapshot"
	StreamEventModel        = "model"
	StreamEventStatusChange = "status_change"
	StreamEventConnection   = "connection"

	// StreamEventReconnect is the only frame the browser sends.
	StreamEventReconnect = "reconnect"
)

const (
	streamWriteWait   = 10 * time.Second
	streamMaxReadSize = 4 << 10
)

type statusChangeDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// liveStream queues controller notifications for the websocket writer. The
// controller calls it under its lock, so enqueueing never blocks: a full queue
// marks the browser as too slow and ends the stream.
type liveStream struct {
	logger *logging.Logger
	frames chan []byte

	once sync.Once
	done chan struct{}
}

func newLiveStream(size int, logger *logging.Logger) *liveStream {
	return &liveStream{
		logger: logger,
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

func (s *liveStream) SnapshotLoaded(model matchview.MatchViewModel) {
	s.enqueue(StreamEventSnapshot, model)
}

func (s *liveStream) ModelPublished(model matchview.MatchViewModel) {
	s.enqueue(StreamEventModel, model)
}

func (s *liveStream) StatusChanged(change matchview.StatusChange) {
	s.enqueue(StreamEventStatusChange, statusChangeDTO{From: change.From, To: change.To})
}

func (s *liveStream) ConnectionChanged(state usecase.ConnectionState) {
	s.enqueue(StreamEventConnection, state)
}

func (s *liveStream) enqueue(event string, data any) {
	frame, err := livechannel.NewFrame(event, data)
	if err != nil {
		s.logger.Warn("encode live stream frame failed", "event", event, "error", err)
		return
	}
	payload, err := frame.Encode()
	if err != nil {
		s.logger.Warn("encode live stream frame failed", "event", event, "error", err)
		return
	}

	select {
	case <-s.done:
	case s.frames <- payload:
	default:
		s.logger.Warn("live stream queue full, closing stream", "event", event)
		s.stop()
	}
}

func (s *liveStream) stop() {
	s.once.Do(func() { close(s.done) })
}

// StreamMatch serves the live view of one match over a websocket: the snapshot
// first, then every merged model, status change and connection change.
func (h *Handler) StreamMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	logger := h.logger.With("match_id", matchID, "stream_id", id.New("live"))

	if !websocket.IsWebSocketUpgrade(r) {
		writeError(ctx, w, errUpgradeRequired)
		return
	}

	stream := newLiveStream(h.stream.QueueSize, logger)
	controller, err := h.liveService.Open(ctx, matchID, stream)
	if err != nil {
		logger.WarnContext(ctx, "open live session failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	defer controller.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger.InfoContext(ctx, "live stream opened")
	go h.readStream(ctx, conn, stream, controller)
	h.writeStream(ctx, conn, stream)
	logger.InfoContext(ctx, "live stream closed")
}

// readStream consumes browser frames until the socket closes. Pongs extend the
// read deadline.
func (h *Handler) readStream(ctx context.Context, conn *websocket.Conn, stream *liveStream, controller *usecase.LiveMergeController) {
	defer stream.stop()

	pongWait := h.stream.PingInterval * 2
	conn.SetReadLimit(streamMaxReadSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				stream.logger.WarnContext(ctx, "live stream read failed", "error", err)
			}
			return
		}
		frame, err := livechannel.DecodeFrame(raw)
		if err != nil {
			stream.logger.DebugContext(ctx, "ignoring malformed browser frame", "error", err)
			continue
		}
		if frame.Event == StreamEventReconnect {
			controller.Reconnect()
		}
	}
}

func (h *Handler) writeStream(ctx context.Context, conn *websocket.Conn, stream *liveStream) {
	ticker := time.NewTicker(h.stream.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeStream(conn, websocket.CloseGoingAway)
			return
		case <-stream.done:
			h.closeStream(conn, websocket.CloseNormalClosure)
			return
		case payload := <-stream.frames:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				stream.logger.WarnContext(ctx, "live stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) closeStream(conn *websocket.Conn, code int) {
	message := websocket.FormatCloseMessage(code, "")
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(streamWriteWait))
}

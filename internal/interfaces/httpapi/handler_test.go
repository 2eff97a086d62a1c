package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/goldstats-live/internal/domain/chat"
	"github.com/riskibarqy/goldstats-live/internal/livechannel"
	chatmock "github.com/riskibarqy/goldstats-live/internal/mocks/domain/chat"
	feedmock "github.com/riskibarqy/goldstats-live/internal/mocks/domain/feed"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
	"github.com/stretchr/testify/mock"
)

const liveHeaderBody = `{"success":true,"data":{"id":77,"status":"2H","minute":61,
	"home_team":{"id":10,"name":"Home FC"},
	"away_team":{"id":20,"name":"Away FC"},
	"league":{"id":8,"name":"Premier League"}}}`

type testDeps struct {
	source    *feedmock.Source
	assistant *chatmock.Assistant
	channel   *stubChannel
	router    http.Handler
}

func newTestRouter(t *testing.T) testDeps {
	t.Helper()

	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Release)

	source := feedmock.NewSource(t)
	assistant := chatmock.NewAssistant(t)
	channel := newStubChannel()

	matches := usecase.NewMatchSnapshotService(source, pool, nil)
	handler := NewHandler(
		matches,
		usecase.NewLeagueSnapshotService(source, nil),
		usecase.NewHomeService(source, nil),
		usecase.NewChatService(assistant, source, nil),
		usecase.NewLiveSessionService(matches, func() usecase.LiveChannel { return channel }, nil),
		StreamConfig{AllowedOrigins: []string{"*"}},
		nil,
	)

	return testDeps{
		source:    source,
		assistant: assistant,
		channel:   channel,
		router:    NewRouter(handler, nil, true, []string{"*"}),
	}
}

// expectLiveSnapshot registers a live match whose secondary blocks all fail.
func expectLiveSnapshot(source *feedmock.Source) {
	source.On("MatchHeader", mock.Anything, "77").Return([]byte(liveHeaderBody), nil).Once()
	source.On("NextMatches", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("LastMatches", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("MatchAnalysis", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("MatchStats", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("LeagueDetails", mock.Anything, "8").Return(nil, errors.New("down")).Once()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v body=%s", err, rec.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	deps := newTestRouter(t)

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestGetMatch_ReturnsSnapshot(t *testing.T) {
	deps := newTestRouter(t)
	expectLiveSnapshot(deps.source)

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/77", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object")
	}
	header, _ := data["header"].(map[string]any)
	if header["status"] != "2H" {
		t.Fatalf("unexpected header: %v", header)
	}
}

func TestGetMatch_HeaderFailureIsNotFound(t *testing.T) {
	deps := newTestRouter(t)
	deps.source.On("MatchHeader", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	deps.source.On("NextMatches", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()
	deps.source.On("LastMatches", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()
	deps.source.On("MatchAnalysis", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()
	deps.source.On("MatchStats", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/77", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestGetLeague_DetailsFailureIsNotFound(t *testing.T) {
	deps := newTestRouter(t)
	deps.source.On("LeagueDetails", mock.Anything, "8").Return(nil, errors.New("down")).Once()

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leagues/8", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestGetHome_InvalidDate(t *testing.T) {
	deps := newTestRouter(t)

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/home?date=16-10-2026", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetHome_ListsMatches(t *testing.T) {
	deps := newTestRouter(t)
	deps.source.On("Home", mock.Anything, "2026-10-16").
		Return([]byte(`{"success":true,"data":[{"id":1,"status":"LIVE","league":{"id":8,"name":"Premier League"},
			"home_team":{"name":"A"},"away_team":{"name":"B"}}]}`), nil).Once()

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/home?date=2026-10-16", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	data, _ := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["hasLive"] != true {
		t.Fatalf("expected a live listing, got %v", data)
	}
}

func TestSendChat(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		deps := newTestRouter(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/matches/77/chat", strings.NewReader(`{"message":`))
		deps.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unknown history role", func(t *testing.T) {
		deps := newTestRouter(t)

		rec := httptest.NewRecorder()
		body := `{"message":"hi","history":[{"role":"system","content":"x"}]}`
		deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/matches/77/chat", strings.NewReader(body)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("reply", func(t *testing.T) {
		deps := newTestRouter(t)
		deps.assistant.On("Ask", mock.Anything, "77", mock.MatchedBy(func(req chat.Request) bool {
			return req.Message == "corners?" && req.MatchInfo.HomeTeam == "Home FC" && req.MatchInfo.League == "League"
		})).Return(chat.Reply{Success: true, Message: "Around 10."}, nil).Once()

		body, _ := sonic.Marshal(map[string]any{
			"message":   "corners?",
			"history":   []map[string]string{{"role": "user", "content": "hello"}},
			"matchInfo": map[string]string{"home_team": "Home FC", "away_team": "Away FC"},
		})
		rec := httptest.NewRecorder()
		deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/matches/77/chat", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		data, _ := decodeEnvelope(t, rec)["data"].(map[string]any)
		if data["role"] != chat.RoleAssistant || data["content"] != "Around 10." {
			t.Fatalf("unexpected reply: %v", data)
		}
	})
}

func TestStreamMatch_RequiresUpgrade(t *testing.T) {
	deps := newTestRouter(t)

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/77/live", nil))

	if rec.Code != http.StatusUpgradeRequired {
		t.Fatalf("expected status 426, got %d", rec.Code)
	}
	if got := rec.Header().Get("Upgrade"); got != "websocket" {
		t.Fatalf("expected Upgrade: websocket, got %q", got)
	}
}

// stubChannel is an in-memory usecase.LiveChannel.
type stubChannel struct {
	mu         sync.Mutex
	nextID     livechannel.ListenerID
	handlers   map[livechannel.ListenerID]stubHandler
	subscribed map[string]int
	released   int
}

type stubHandler struct {
	event string
	fn    livechannel.Handler
}

func newStubChannel() *stubChannel {
	return &stubChannel{
		handlers:   make(map[livechannel.ListenerID]stubHandler),
		subscribed: make(map[string]int),
	}
}

func (s *stubChannel) On(event string, fn livechannel.Handler) livechannel.ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.handlers[s.nextID] = stubHandler{event: event, fn: fn}
	return s.nextID
}

func (s *stubChannel) Off(id livechannel.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, id)
}

func (s *stubChannel) Subscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[topic]++
}

func (s *stubChannel) Unsubscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[topic]--
}

func (s *stubChannel) Connect() {}

func (s *stubChannel) Connected() bool { return false }

func (s *stubChannel) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
}

func (s *stubChannel) emit(event, data string) {
	s.mu.Lock()
	var fns []livechannel.Handler
	for id := livechannel.ListenerID(1); id <= s.nextID; id++ {
		if h, ok := s.handlers[id]; ok && h.event == event {
			fns = append(fns, h.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn([]byte(data))
	}
}

func (s *stubChannel) snapshot() (listeners, subscriptions, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers), s.subscribed["77"], s.released
}

func TestOpenAPI_ServesDocument(t *testing.T) {
	deps := newTestRouter(t)

	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/v1/matches/{matchID}/live") {
		t.Fatalf("unexpected openapi response: status=%d", rec.Code)
	}
}

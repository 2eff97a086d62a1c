package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/livechannel"
)

type fakeChannel struct {
	mu           sync.Mutex
	nextID       livechannel.ListenerID
	handlers     map[livechannel.ListenerID]fakeHandler
	subscribed   []string
	unsubscribed []string
	connects     int
	connected    bool
	released     int
}

type fakeHandler struct {
	event string
	fn    livechannel.Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[livechannel.ListenerID]fakeHandler)}
}

func (f *fakeChannel) On(event string, fn livechannel.Handler) livechannel.ListenerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.handlers[f.nextID] = fakeHandler{event: event, fn: fn}
	return f.nextID
}

func (f *fakeChannel) Off(id livechannel.ListenerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, id)
}

func (f *fakeChannel) Subscribe(topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topic)
}

func (f *fakeChannel) Unsubscribe(topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topic)
}

func (f *fakeChannel) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

// handler returns the first handler registered for event, even after Off.
func (f *fakeChannel) handler(event string) livechannel.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := livechannel.ListenerID(1); id <= f.nextID; id++ {
		if h, ok := f.handlers[id]; ok && h.event == event {
			return h.fn
		}
	}
	return nil
}

func (f *fakeChannel) emit(event string, data string) {
	if fn := f.handler(event); fn != nil {
		fn([]byte(data))
	}
}

func (f *fakeChannel) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

type recordingObserver struct {
	mu          sync.Mutex
	models      []matchview.MatchViewModel
	changes     []matchview.StatusChange
	connections []ConnectionState
}

func (o *recordingObserver) ModelPublished(model matchview.MatchViewModel) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.models = append(o.models, model)
}

func (o *recordingObserver) StatusChanged(change matchview.StatusChange) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, change)
}

func (o *recordingObserver) ConnectionChanged(state ConnectionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connections = append(o.connections, state)
}

func liveSeed() matchview.MatchViewModel {
	return matchview.MatchViewModel{
		Header: matchview.Header{
			ID:       "77",
			Status:   "1H",
			HomeTeam: matchview.TeamInfo{ID: "10", Name: "Home"},
			AwayTeam: matchview.TeamInfo{ID: "20", Name: "Away"},
		},
		Events:    []matchview.Event{{Minute: 5, Type: matchview.EventGoal, TeamSide: matchview.SideHome}},
		Lineups:   matchview.Lineups{Home: matchview.TeamLineup{Formation: "4-4-2"}},
		Standings: []matchview.Standing{{Position: 1, TeamID: "10"}},
		AI:        matchview.Analysis{Analysis: "seed"},
	}
}

func startedController(t *testing.T) (*LiveMergeController, *fakeChannel, *recordingObserver) {
	t.Helper()
	channel := newFakeChannel()
	observer := &recordingObserver{}
	controller := NewLiveMergeController("77", liveSeed(), channel, observer, nil)
	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	channel.emit(livechannel.EventConnect, "")
	return controller, channel, observer
}

func TestLiveMergeController_StartSubscribesAndConnects(t *testing.T) {
	t.Parallel()

	channel := newFakeChannel()
	controller := NewLiveMergeController("77", liveSeed(), channel, nil, nil)
	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if controller.State() != LiveStateConnecting {
		t.Fatalf("expected connecting, got %s", controller.State())
	}
	if len(channel.subscribed) != 1 || channel.subscribed[0] != "77" || channel.connects != 1 {
		t.Fatalf("unexpected channel calls subscribed=%v connects=%d", channel.subscribed, channel.connects)
	}
	if err := controller.Start(context.Background()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected second start to fail, got %v", err)
	}
}

func TestLiveMergeController_StartOnConnectedChannel(t *testing.T) {
	t.Parallel()

	channel := newFakeChannel()
	channel.connected = true
	observer := &recordingObserver{}
	controller := NewLiveMergeController("77", liveSeed(), channel, observer, nil)
	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if controller.State() != LiveStateConnected || !controller.Connection().Connected {
		t.Fatalf("expected connected immediately, got %s %+v", controller.State(), controller.Connection())
	}
	if channel.connects != 0 {
		t.Fatalf("expected no connect request, got %d", channel.connects)
	}
	if len(observer.connections) != 1 || !observer.connections[0].Connected {
		t.Fatalf("expected one connection notification, got %+v", observer.connections)
	}
}

func TestLiveMergeController_StatisticsOnlyUpdateRetainsOtherBlocks(t *testing.T) {
	t.Parallel()

	controller, channel, observer := startedController(t)

	channel.emit(livechannel.EventMatchUpdate, `{"matchId":"77","data":{"analysis":{"detailedStats":{"fulltime":{"shots":{"total":{"home":9,"away":4}}}}}}}`)

	model := controller.Model()
	if model.Statistics.Home.ShotsTotal != 9 || model.Statistics.Away.ShotsTotal != 4 {
		t.Fatalf("expected statistics replaced, got %+v", model.Statistics)
	}
	if model.Header.Status != "1H" || len(model.Events) != 1 || model.Lineups.Home.Formation != "4-4-2" {
		t.Fatalf("expected other live blocks retained, got %+v", model)
	}
	if len(model.Standings) != 1 || model.AI.Analysis != "seed" {
		t.Fatalf("expected auxiliary blocks untouched, got %+v", model)
	}
	if len(observer.models) != 1 || len(observer.changes) != 0 {
		t.Fatalf("expected one publish and no status change, got %d/%d", len(observer.models), len(observer.changes))
	}
	if controller.State() != LiveStateConnected {
		t.Fatalf("expected connected after update, got %s", controller.State())
	}
}

func TestLiveMergeController_ReportsStatusChangeOnce(t *testing.T) {
	t.Parallel()

	controller, channel, observer := startedController(t)

	update := `{"matchId":"77","data":{"matchInfo":{"id":"77","status":"HT","home_team":{"id":"10","name":"Home"},"away_team":{"id":"20","name":"Away"}}}}`
	channel.emit(livechannel.EventMatchUpdate, update)
	channel.emit(livechannel.EventMatchUpdate, update)

	if len(observer.changes) != 1 {
		t.Fatalf("expected exactly one status change, got %+v", observer.changes)
	}
	if observer.changes[0] != (matchview.StatusChange{From: "1H", To: "HT"}) {
		t.Fatalf("unexpected status change %+v", observer.changes[0])
	}
	if len(observer.models) != 2 || controller.Model().Header.Status != "HT" {
		t.Fatalf("expected two publishes ending at HT, got %d %s", len(observer.models), controller.Model().Header.Status)
	}
}

func TestLiveMergeController_DropsMalformedAndForeignUpdates(t *testing.T) {
	t.Parallel()

	controller, channel, observer := startedController(t)
	before := controller.Model()

	channel.emit(livechannel.EventMatchUpdate, `{not json`)
	channel.emit(livechannel.EventMatchUpdate, `{"matchId":"78","data":{"events":[]}}`)
	channel.emit(livechannel.EventMatchUpdate, `{"matchId":"77","data":{}}`)

	if len(observer.models) != 0 {
		t.Fatalf("expected no publish, got %d", len(observer.models))
	}
	after := controller.Model()
	if len(after.Events) != len(before.Events) || after.Header.Status != before.Header.Status {
		t.Fatalf("expected model unchanged, got %+v", after)
	}
}

func TestLiveMergeController_ConnectionStateFollowsChannel(t *testing.T) {
	t.Parallel()

	controller, channel, observer := startedController(t)

	channel.emit(livechannel.EventDisconnect, `{"reason":"eof"}`)
	if controller.State() != LiveStateDisconnected || controller.Connection().Connected {
		t.Fatalf("expected disconnected, got %s %+v", controller.State(), controller.Connection())
	}
	channel.emit(livechannel.EventReconnectFailed, "")

	controller.Reconnect()
	if controller.State() != LiveStateConnecting || channel.connects != 2 {
		t.Fatalf("expected reconnect request, got %s connects=%d", controller.State(), channel.connects)
	}

	channel.emit(livechannel.EventConnect, "")
	want := []ConnectionState{{Connected: true}, {Connected: false}, {Connected: true}}
	if len(observer.connections) != len(want) {
		t.Fatalf("expected %d connection notifications, got %+v", len(want), observer.connections)
	}
	for i := range want {
		if observer.connections[i] != want[i] {
			t.Fatalf("notification %d: expected %+v, got %+v", i, want[i], observer.connections[i])
		}
	}
}

func TestLiveMergeController_AutomaticReconnectPassesThroughConnecting(t *testing.T) {
	t.Parallel()

	controller, channel, observer := startedController(t)

	channel.emit(livechannel.EventDisconnect, `{"reason":"eof"}`)
	channel.emit(livechannel.EventReconnectAttempt, `{"attempt":1}`)
	if controller.State() != LiveStateConnecting {
		t.Fatalf("expected connecting during channel retry, got %s", controller.State())
	}
	if controller.Connection().Connected {
		t.Fatalf("expected connection reported down while retrying")
	}

	channel.emit(livechannel.EventConnectError, `{"message":"refused"}`)
	if controller.State() != LiveStateDisconnected {
		t.Fatalf("expected disconnected after failed retry, got %s", controller.State())
	}
	channel.emit(livechannel.EventReconnectAttempt, `{"attempt":2}`)
	channel.emit(livechannel.EventConnect, "")
	if controller.State() != LiveStateConnected || !controller.Connection().Connected {
		t.Fatalf("expected connected after retry, got %s %+v", controller.State(), controller.Connection())
	}
	if channel.connects != 1 {
		t.Fatalf("expected the channel to retry on its own, got connects=%d", channel.connects)
	}

	want := []ConnectionState{{Connected: true}, {Connected: false}, {Connected: true}}
	if len(observer.connections) != len(want) {
		t.Fatalf("expected %d connection notifications, got %+v", len(want), observer.connections)
	}
}

func TestLiveMergeController_ReconnectAttemptIgnoredWhileConnected(t *testing.T) {
	t.Parallel()

	controller, channel, _ := startedController(t)
	channel.emit(livechannel.EventReconnectAttempt, `{"attempt":1}`)
	if controller.State() != LiveStateConnected {
		t.Fatalf("expected connected, got %s", controller.State())
	}
}

func TestLiveMergeController_CloseStopsMutation(t *testing.T) {
	t.Parallel()

	controller, channel, observer := startedController(t)
	queued := channel.handler(livechannel.EventMatchUpdate)

	controller.Close()
	controller.Close()

	if channel.listenerCount() != 0 {
		t.Fatalf("expected every listener detached, got %d", channel.listenerCount())
	}
	if len(channel.unsubscribed) != 1 || channel.unsubscribed[0] != "77" || channel.released != 1 {
		t.Fatalf("unexpected teardown calls unsubscribed=%v released=%d", channel.unsubscribed, channel.released)
	}

	queued([]byte(`{"matchId":"77","data":{"matchInfo":{"id":"77","status":"FT"}}}`))
	if controller.Model().Header.Status != "1H" || len(observer.models) != 0 {
		t.Fatalf("expected no mutation after close, got status=%s publishes=%d", controller.Model().Header.Status, len(observer.models))
	}
	if controller.State() != LiveStateTornDown {
		t.Fatalf("expected torn down, got %s", controller.State())
	}
}

func TestLiveState_TransitionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to LiveState
		want     bool
	}{
		{LiveStateIdle, LiveStateConnecting, true},
		{LiveStateIdle, LiveStateUpdating, false},
		{LiveStateConnected, LiveStateUpdating, true},
		{LiveStateDisconnected, LiveStateUpdating, false},
		{LiveStateTornDown, LiveStateConnecting, false},
		{LiveStateUpdating, LiveStateTornDown, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/livechannel"
	"github.com/riskibarqy/goldstats-live/internal/normalize"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
)

type LiveState int

const (
	LiveStateIdle LiveState = iota
	LiveStateConnecting
	LiveStateConnected
	LiveStateUpdating
	LiveStateDisconnected
	LiveStateTornDown
)

func (s LiveState) String() string {
	switch s {
	case LiveStateIdle:
		return "idle"
	case LiveStateConnecting:
		return "connecting"
	case LiveStateConnected:
		return "connected"
	case LiveStateUpdating:
		return "updating"
	case LiveStateDisconnected:
		return "disconnected"
	case LiveStateTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("live_state(%d)", int(s))
	}
}

var liveTransitions = map[LiveState][]LiveState{
	LiveStateIdle:         {LiveStateConnecting, LiveStateTornDown},
	LiveStateConnecting:   {LiveStateConnected, LiveStateDisconnected, LiveStateTornDown},
	LiveStateConnected:    {LiveStateUpdating, LiveStateDisconnected, LiveStateTornDown},
	LiveStateUpdating:     {LiveStateConnected, LiveStateDisconnected, LiveStateTornDown},
	LiveStateDisconnected: {LiveStateConnecting, LiveStateConnected, LiveStateTornDown},
}

// CanTransition reports whether the controller may move from s to next.
func (s LiveState) CanTransition(next LiveState) bool {
	for _, allowed := range liveTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ConnectionState struct {
	Connected bool `json:"connected"`
}

// LiveChannel is the controller's view of a lease on the shared push connection.
type LiveChannel interface {
	On(event string, fn livechannel.Handler) livechannel.ListenerID
	Off(id livechannel.ListenerID)
	Subscribe(topic string)
	Unsubscribe(topic string)
	Connect()
	Connected() bool
	Release()
}

// LiveObserver receives published state. Methods are called with the controller
// lock held, so they must not block or call back into the controller.
type LiveObserver interface {
	ModelPublished(model matchview.MatchViewModel)
	StatusChanged(change matchview.StatusChange)
	ConnectionChanged(state ConnectionState)
}

// LiveMergeController folds push updates for one match into its view model.
type LiveMergeController struct {
	matchID  string
	channel  LiveChannel
	observer LiveObserver
	logger   *logging.Logger

	mu         sync.Mutex
	state      LiveState
	model      matchview.MatchViewModel
	connection ConnectionState
	listeners  []livechannel.ListenerID
}

func NewLiveMergeController(
	matchID string,
	seed matchview.MatchViewModel,
	channel LiveChannel,
	observer LiveObserver,
	logger *logging.Logger,
) *LiveMergeController {
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveMergeController{
		matchID:  strings.TrimSpace(matchID),
		channel:  channel,
		observer: observer,
		logger:   logger.With("match_id", strings.TrimSpace(matchID)),
		state:    LiveStateIdle,
		model:    seed,
	}
}

// Start attaches listeners, holds the match subscription and asks the channel to
// connect. When the shared connection is already up it goes straight to Connected.
func (c *LiveMergeController) Start(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveMergeController.Start")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.matchID == "" {
		return fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if c.state != LiveStateIdle {
		return fmt.Errorf("%w: live controller already %s", ErrInvalidInput, c.state)
	}

	c.listeners = append(c.listeners,
		c.channel.On(livechannel.EventConnect, func([]byte) { c.handleConnection(true, livechannel.EventConnect) }),
		c.channel.On(livechannel.EventDisconnect, func([]byte) { c.handleConnection(false, livechannel.EventDisconnect) }),
		c.channel.On(livechannel.EventConnectError, func([]byte) { c.handleConnection(false, livechannel.EventConnectError) }),
		c.channel.On(livechannel.EventReconnectFailed, func([]byte) { c.handleConnection(false, livechannel.EventReconnectFailed) }),
		c.channel.On(livechannel.EventReconnectAttempt, func([]byte) { c.handleReconnectAttempt() }),
		c.channel.On(livechannel.EventMatchUpdate, c.handleUpdate),
	)
	c.channel.Subscribe(c.matchID)
	c.transitionLocked(LiveStateConnecting)

	if c.channel.Connected() {
		c.setConnectionLocked(true)
		return nil
	}
	c.channel.Connect()
	c.logger.InfoContext(ctx, "live controller started")
	return nil
}

// Reconnect asks a disconnected channel to connect again, for use after the
// reconnect attempts were exhausted.
func (c *LiveMergeController) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != LiveStateDisconnected {
		return
	}
	c.transitionLocked(LiveStateConnecting)
	c.channel.Connect()
}

// Close detaches every listener, drops the subscription and releases the lease.
// After Close returns the model is never mutated again. Idempotent.
func (c *LiveMergeController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == LiveStateTornDown {
		return
	}
	started := c.state != LiveStateIdle
	c.state = LiveStateTornDown

	for _, id := range c.listeners {
		c.channel.Off(id)
	}
	c.listeners = nil
	if started {
		c.channel.Unsubscribe(c.matchID)
	}
	c.channel.Release()
	c.logger.Info("live controller closed")
}

func (c *LiveMergeController) Model() matchview.MatchViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *LiveMergeController) State() LiveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *LiveMergeController) Connection() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection
}

func (c *LiveMergeController) handleConnection(connected bool, event string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == LiveStateTornDown {
		return
	}
	if event != livechannel.EventConnect {
		c.logger.Warn("live channel unavailable", "event", event)
	}
	c.setConnectionLocked(connected)
}

// handleReconnectAttempt moves a dropped controller back to Connecting while the
// channel retries on its own. The connection stays reported as down.
func (c *LiveMergeController) handleReconnectAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != LiveStateDisconnected {
		return
	}
	c.transitionLocked(LiveStateConnecting)
}

func (c *LiveMergeController) handleUpdate(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == LiveStateTornDown {
		return
	}

	update, err := normalize.NormalizeUpdate(raw, c.model.Header.HomeTeam.ID)
	if err != nil {
		c.logger.Warn("dropped malformed live update", "error", err)
		return
	}
	if update.MatchID != "" && update.MatchID != c.matchID {
		return
	}
	if update.Empty() {
		return
	}

	resume := c.state
	if c.transitionLocked(LiveStateUpdating) {
		defer c.transitionLocked(resume)
	}

	next, change := matchview.Merge(c.model, update)
	c.model = next
	if change != nil {
		c.logger.Info("match status changed", "from", change.From, "to", change.To)
		if c.observer != nil {
			c.observer.StatusChanged(*change)
		}
	}
	if c.observer != nil {
		c.observer.ModelPublished(next)
	}
}

func (c *LiveMergeController) setConnectionLocked(connected bool) {
	target := LiveStateDisconnected
	if connected {
		target = LiveStateConnected
	}
	if c.state != target {
		c.transitionLocked(target)
	}
	if c.connection.Connected == connected {
		return
	}
	c.connection = ConnectionState{Connected: connected}
	if c.observer != nil {
		c.observer.ConnectionChanged(c.connection)
	}
}

func (c *LiveMergeController) transitionLocked(next LiveState) bool {
	if !c.state.CanTransition(next) {
		return false
	}
	c.state = next
	return true
}

package livechannel

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
)

const (
	DefaultNamespace         = "/goldstats"
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second

	defaultPingInterval = 25 * time.Second
	writeTimeout        = 10 * time.Second
	maxFrameSize        = 4 << 20
)

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Config struct {
	URL               string
	Namespace         string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	PingInterval      time.Duration
	Dialer            Dialer
	Logger            *logging.Logger
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Namespace) == "" {
		c.Namespace = DefaultNamespace
	}
	if c.ReconnectAttempts < 0 {
		c.ReconnectAttempts = 0
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	return c
}

func (c Config) endpoint() string {
	return strings.TrimRight(c.URL, "/") + "/" + strings.TrimLeft(c.Namespace, "/")
}

// Handler receives the raw data of a frame. Handlers run on the connection's read
// goroutine, one at a time, in registration order.
type Handler func(data []byte)

type ListenerID uint64

type listener struct {
	id ListenerID
	fn Handler
}

// Connection is one websocket session to the push server with automatic
// reconnect. Topic subscriptions are reference counted and replayed after every
// successful connect, before the connect event is dispatched.
type Connection struct {
	cfg    Config
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	ws         *websocket.Conn
	connected  bool
	running    bool
	closed     bool
	listeners  map[string][]listener
	eventOf    map[ListenerID]string
	nextID     ListenerID
	topics     map[string]int
	topicOrder []string

	writeMu sync.Mutex
	done    sync.WaitGroup
}

func newConnection(cfg Config) *Connection {
	cfg = cfg.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		cfg:       cfg,
		logger:    cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[string][]listener),
		eventOf:   make(map[ListenerID]string),
		topics:    make(map[string]int),
	}
}

// On registers fn for event and returns an id for Off.
func (c *Connection) On(event string, fn Handler) ListenerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners[event] = append(c.listeners[event], listener{id: id, fn: fn})
	c.eventOf[id] = event
	return id
}

// Off detaches a listener. Once Off returns the handler is not invoked for frames
// dispatched afterwards.
func (c *Connection) Off(id ListenerID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	event, ok := c.eventOf[id]
	if !ok {
		return
	}
	delete(c.eventOf, id)
	current := c.listeners[event]
	kept := make([]listener, 0, len(current))
	for _, l := range current {
		if l.id != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(c.listeners, event)
		return
	}
	c.listeners[event] = kept
}

// Subscribe adds one reference to topic. The subscribe frame is only sent for the
// first reference while connected; otherwise it goes out on the next connect.
func (c *Connection) Subscribe(topic string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.topics[topic]++
	first := c.topics[topic] == 1
	if first {
		c.topicOrder = append(c.topicOrder, topic)
	}
	ws := c.ws
	send := first && c.connected
	c.mu.Unlock()

	if send {
		c.send(ws, EventMatchSubscribe, topic)
	}
}

// Unsubscribe drops one reference to topic. The unsubscribe frame is sent, without
// waiting for any acknowledgement, when the last reference goes away.
func (c *Connection) Unsubscribe(topic string) {
	c.mu.Lock()
	count, ok := c.topics[topic]
	if !ok {
		c.mu.Unlock()
		return
	}
	last := count <= 1
	if last {
		delete(c.topics, topic)
		c.topicOrder = removeString(c.topicOrder, topic)
	} else {
		c.topics[topic] = count - 1
	}
	ws := c.ws
	send := last && c.connected
	c.mu.Unlock()

	if send {
		c.send(ws, EventMatchUnsubscribe, topic)
	}
}

// Topics returns the currently held topics in subscription order.
func (c *Connection) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topicOrder...)
}

// Connect starts the session loop unless it is already running. After reconnect
// attempts are exhausted the loop stops until the next Connect call.
func (c *Connection) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.running {
		return
	}
	c.running = true
	c.done.Add(1)
	go c.run()
}

func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the session down. No event is dispatched after Close returns except
// from a handler that was already running.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.connected = false
	ws := c.ws
	c.ws = nil
	c.listeners = make(map[string][]listener)
	c.eventOf = make(map[ListenerID]string)
	c.mu.Unlock()

	c.cancel()
	if ws != nil {
		c.writeMu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = ws.Close()
	}
}

// Wait blocks until the session loop has exited. Must not be called from a handler.
func (c *Connection) Wait() {
	c.done.Wait()
}

func (c *Connection) run() {
	defer c.done.Done()

	failures := 0
	redial := false
	for {
		// every dial after a drop or a failed attempt is announced first
		if redial {
			c.dispatch(EventReconnectAttempt, encodeData(reconnectPayload{Attempt: failures + 1}))
		}
		redial = true

		ws, err := c.dial()
		if err != nil {
			if c.ctx.Err() != nil {
				c.stopRunning()
				return
			}
			failures++
			c.logger.Warn("live channel connect failed", "url", c.cfg.endpoint(), "attempt", failures, "error", err)
			c.dispatch(EventConnectError, encodeData(errorPayload{Message: err.Error()}))
			if failures > c.cfg.ReconnectAttempts {
				c.stopRunning()
				c.logger.Warn("live channel reconnect attempts exhausted", "attempts", failures)
				c.dispatch(EventReconnectFailed, nil)
				return
			}
			if !c.sleep(c.cfg.ReconnectDelay) {
				c.stopRunning()
				return
			}
			continue
		}

		topics, ok := c.attach(ws)
		if !ok {
			_ = ws.Close()
			c.stopRunning()
			return
		}
		failures = 0
		for _, topic := range topics {
			c.send(ws, EventMatchSubscribe, topic)
		}
		c.logger.Info("live channel connected", "url", c.cfg.endpoint(), "topics", len(topics))
		c.dispatch(EventConnect, nil)

		reason := c.readLoop(ws)

		if !c.detach(ws) {
			c.stopRunning()
			return
		}
		c.logger.Warn("live channel disconnected", "reason", reason)
		c.dispatch(EventDisconnect, encodeData(disconnectPayload{Reason: reason}))
		if !c.sleep(c.cfg.ReconnectDelay) {
			c.stopRunning()
			return
		}
	}
}

func (c *Connection) dial() (*websocket.Conn, error) {
	ws, resp, err := c.cfg.Dialer.DialContext(c.ctx, c.cfg.endpoint(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, crerr.Wrap(err, "dial live channel")
	}
	ws.SetReadLimit(maxFrameSize)
	return ws, nil
}

// attach publishes ws as the live session and snapshots the topics to replay.
func (c *Connection) attach(ws *websocket.Conn) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.ws = ws
	c.connected = true
	return append([]string(nil), c.topicOrder...), true
}

// detach clears ws if it is still the live session. It reports false when the
// connection was closed meanwhile.
func (c *Connection) detach(ws *websocket.Conn) bool {
	_ = ws.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == ws {
		c.ws = nil
		c.connected = false
	}
	return !c.closed
}

func (c *Connection) stopRunning() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Connection) readLoop(ws *websocket.Conn) string {
	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.pingLoop(ws, stopPing)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return "client closed"
			}
			return err.Error()
		}
		frame, err := DecodeFrame(raw)
		if err != nil {
			c.logger.Warn("live channel dropped malformed frame", "error", err)
			continue
		}
		if frame.Event == "" {
			continue
		}
		c.dispatch(frame.Event, frame.Data)
	}
}

func (c *Connection) pingLoop(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Connection) dispatch(event string, data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	handlers := append([]listener(nil), c.listeners[event]...)
	c.mu.Unlock()

	for _, l := range handlers {
		if !c.isAttached(l.id) {
			continue
		}
		l.fn(data)
	}
}

func (c *Connection) isAttached(id ListenerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.eventOf[id]
	return ok && !c.closed
}

func (c *Connection) send(ws *websocket.Conn, event, topic string) {
	if ws == nil {
		return
	}
	frame, err := NewFrame(event, topic)
	if err == nil {
		var payload []byte
		payload, err = frame.Encode()
		if err == nil {
			c.writeMu.Lock()
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			err = ws.WriteMessage(websocket.TextMessage, payload)
			c.writeMu.Unlock()
		}
	}
	if err != nil {
		c.logger.Warn("live channel write failed", "event", event, "topic", topic, "error", err)
	}
}

func (c *Connection) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func encodeData(v any) []byte {
	frame, err := NewFrame("", v)
	if err != nil {
		return nil
	}
	return frame.Data
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}

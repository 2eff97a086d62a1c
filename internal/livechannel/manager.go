package livechannel

import "sync"

// Manager hands out leases on one shared connection. The connection is created by
// the first Acquire and closed when the last lease is released.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	conn   *Connection
	leases int
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg.normalized()}
}

func (m *Manager) Acquire() *Lease {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		m.conn = newConnection(m.cfg)
	}
	m.leases++
	return &Lease{
		manager: m,
		conn:    m.conn,
		topics:  make(map[string]int),
	}
}

// Leases reports the number of outstanding leases.
func (m *Manager) Leases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leases
}

// Close drops the shared connection regardless of outstanding leases. Used at
// process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.leases = 0
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (m *Manager) release(conn *Connection) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.leases--
	if m.leases > 0 {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.leases = 0
	m.mu.Unlock()

	conn.Close()
}

// Lease is one view's handle on the shared connection. It remembers the listeners
// and topics it added so Release can undo them.
type Lease struct {
	manager *Manager
	conn    *Connection

	mu        sync.Mutex
	listeners []ListenerID
	topics    map[string]int
	released  bool
}

func (l *Lease) On(event string, fn Handler) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return 0
	}
	id := l.conn.On(event, fn)
	l.listeners = append(l.listeners, id)
	return id
}

func (l *Lease) Off(id ListenerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, held := range l.listeners {
		if held == id {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			l.conn.Off(id)
			return
		}
	}
}

func (l *Lease) Subscribe(topic string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.topics[topic]++
	l.conn.Subscribe(topic)
}

func (l *Lease) Unsubscribe(topic string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.topics[topic] == 0 {
		return
	}
	l.topics[topic]--
	if l.topics[topic] == 0 {
		delete(l.topics, topic)
	}
	l.conn.Unsubscribe(topic)
}

func (l *Lease) Connect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.released {
		l.conn.Connect()
	}
}

func (l *Lease) Connected() bool {
	return l.conn.Connected()
}

// Release detaches every listener and topic still held, then gives the lease back.
// Safe to call more than once.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	for _, id := range l.listeners {
		l.conn.Off(id)
	}
	l.listeners = nil
	for topic, count := range l.topics {
		for i := 0; i < count; i++ {
			l.conn.Unsubscribe(topic)
		}
	}
	l.topics = map[string]int{}
	l.mu.Unlock()

	l.manager.release(l.conn)
}

package sse

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dunbarapp/dunbar-server/internal/id"
)

// Default buffer sizes.
const (
	defaultQueueSize  = 1000
	defaultClientSize = 100
)

// Client is one subscriber: an SSE connection or an in-process listener.
// Events arrive on EventChan in the order they were emitted.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string

	// Types limits delivery to these event types. Empty means all.
	Types []EventType
}

// wants reports whether the client subscribed to t.
func (c *Client) wants(t EventType) bool {
	return len(c.Types) == 0 || slices.Contains(c.Types, t)
}

// Manager fans events out to subscribers.
// A single dispatch goroutine (Start) delivers events, so every subscriber
// sees them in emit order.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
	started    bool
	stopped    chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeartbeatInterval sets how often heartbeat events are broadcast.
// Zero disables heartbeats.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(m *Manager) { m.heartbeatInterval = d }
}

// WithQueueSize sets the capacity of the pending-event queue.
func WithQueueSize(n int) Option {
	return func(m *Manager) { m.events = make(chan Event, n) }
}

// NewManager creates a new Manager.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, defaultQueueSize),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
		stopped:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the dispatch loop until ctx is cancelled or Shutdown has
// drained the queue. Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.shutdownMu.Lock()
	if m.started || m.shutdown {
		// Already running, or Shutdown drained the queue itself.
		m.shutdownMu.Unlock()
		return
	}
	m.started = true
	m.shutdownMu.Unlock()

	defer close(m.stopped)

	m.logger.Info("event bus starting")

	var heartbeat <-chan time.Time
	if m.heartbeatInterval > 0 {
		ticker := time.NewTicker(m.heartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				// Shutdown closed the queue and everything before it is delivered.
				m.closeAllClients()
				return
			}
			m.broadcast(event)

		case <-heartbeat:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("event bus stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting new events, lets the dispatch loop deliver what
// is already queued, and closes all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("event bus shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents race with Emit() which holds read lock during send.
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	started := m.started
	m.shutdownMu.Unlock()

	if !started {
		for event := range m.events {
			m.broadcast(event)
		}
		m.closeAllClients()
		return nil
	}

	select {
	case <-m.stopped:
		m.logger.Info("event bus drained")
		return nil
	case <-ctx.Done():
		m.logger.Warn("event bus drain timeout, some events may be lost")
		return ctx.Err()
	}
}

// broadcast sends an event to every subscribed client.
func (m *Manager) broadcast(event Event) {
	var delivered, dropped, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if !client.wants(event.Type) {
			filtered++
			continue
		}

		// Non-blocking send (drop if client is slow/stuck).
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

// Subscribe registers a new client. With no types the client receives
// every event.
func (m *Manager) Subscribe(types ...EventType) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		Types:       types,
		EventChan:   make(chan Event, defaultClientSize),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("event client connected",
		slog.String("client_id", clientID),
		slog.Int("types", len(types)),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Unsubscribe removes a client and closes its channels.
func (m *Manager) Unsubscribe(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("event client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// Emit queues an event for delivery. Events emitted after Shutdown are
// dropped silently.
func (m *Manager) Emit(event Event) {
	// Hold read lock through the entire send operation.
	// This prevents race with Shutdown() which holds write lock when closing channel.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// closeAllClients closes all client connections (used during shutdown).
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	m.clients = make(map[string]*Client)

	m.logger.Info("all event clients disconnected")
}

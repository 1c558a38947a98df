package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"navigate-map/internal/location"
	"navigate-map/internal/navigation"
	"navigate-map/internal/routing"
)

type Options struct {
	Variant       navigation.Variant
	Planner       routing.Planner
	EngineOptions routing.EngineOptions
	Formatter     navigation.Formatter
	// Store keeps the last fix of every session. It may be nil.
	Store location.Store
	// Session settings shared by every client.
	RetryInterval time.Duration
	MapArea       navigation.Bounds
	CautionArea   navigation.Bounds
}

type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *slog.Logger

	variant       navigation.Variant
	planner       routing.Planner
	engineOptions routing.EngineOptions
	formatter     navigation.Formatter
	store         location.Store
	retryInterval time.Duration
	mapArea       navigation.Bounds
	cautionArea   navigation.Bounds
}

func NewManager(ctx context.Context, logger *slog.Logger, opts Options) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	variant := opts.Variant
	if variant == "" {
		variant = navigation.VariantTwoPoint
	}
	return &Manager{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger,
		variant:       variant,
		planner:       opts.Planner,
		engineOptions: opts.EngineOptions,
		formatter:     opts.Formatter,
		store:         opts.Store,
		retryInterval: opts.RetryInterval,
		mapArea:       opts.MapArea,
		cautionArea:   opts.CautionArea,
	}
}

// Start runs the registration loop until the manager's context is done.
func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			previous, ok := m.clients[client.ID]
			m.clients[client.ID] = client
			m.mu.Unlock()
			if ok && previous != client {
				m.logger.Info("client replaced by a new connection", "clientID", client.ID)
				go m.forceDisconnect(previous)
			}
			m.logger.Info("client connected", "clientID", client.ID)
		case client := <-m.unregister:
			m.mu.Lock()
			if current, ok := m.clients[client.ID]; ok && current == client {
				delete(m.clients, client.ID)
				m.logger.Info("client disconnected", "clientID", client.ID)
			}
			m.mu.Unlock()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) Register(c *Client) {
	select {
	case m.register <- c:
	case <-m.ctx.Done():
	}
}

func (m *Manager) Unregister(c *Client) {
	select {
	case m.unregister <- c:
	case <-m.ctx.Done():
	}
}

// HandleNewConnection starts a session for conn. An empty variant selects the
// manager's default.
func (m *Manager) HandleNewConnection(id string, variant navigation.Variant, conn *websocket.Conn) error {
	if variant == "" {
		variant = m.variant
	}
	client, err := NewClient(id, variant, conn, m)
	if err != nil {
		return err
	}
	client.Start()
	return nil
}

func (m *Manager) Client(id string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	return c, ok
}

// Publish routes a fix to the session with the given ID. Fixes for sessions
// without a live connection are only stored.
func (m *Manager) Publish(ctx context.Context, sessionID string, fix navigation.Fix) error {
	if c, ok := m.Client(sessionID); ok {
		return c.Publish(ctx, fix)
	}
	if m.store == nil {
		return nil
	}
	if err := fix.Validate(); err != nil {
		return err
	}
	if err := m.store.SetFix(ctx, sessionID, fix); err != nil {
		return fmt.Errorf("failed to store fix for %q: %w", sessionID, err)
	}
	return nil
}

func (m *Manager) forceDisconnect(c *Client) {
	c.Close()
}

func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	for _, client := range m.clients {
		client.Close()
	}
	m.mu.Unlock()
}

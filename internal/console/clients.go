package console

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client holds per-connection state of a websocket client: the control
// values it has collected, per operation, so an invoke message only needs
// to name the operation.
//
// Values are stamped with the engine generation they were collected under
// and are forgotten once a newer interface is loaded, whether or not the
// client was still registered when ResetAll ran.
type Client struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	mu     sync.Mutex
	gen    uint64
	values map[string]map[string]string
}

func newClient() *Client {
	now := time.Now()
	return &Client{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActiveAt: now,
		values:       make(map[string]map[string]string),
	}
}

// Set records one control value collected under generation gen and marks
// the client active.
func (c *Client) Set(gen uint64, op, field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(gen)
	v, ok := c.values[op]
	if !ok {
		v = make(map[string]string)
		c.values[op] = v
	}
	v[field] = value
	c.LastActiveAt = time.Now()
}

// Values returns the client's collected values for op overlaid with
// overrides. Values collected under a generation other than gen are
// dropped first.
func (c *Client) Values(gen uint64, op string, overrides map[string]string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(gen)
	out := maps.Clone(c.values[op])
	if out == nil {
		out = make(map[string]string, len(overrides))
	}
	maps.Copy(out, overrides)
	c.LastActiveAt = time.Now()
	return out
}

// Reset forgets every collected value. Called when a new interface is
// loaded, since field ids of the old one no longer apply.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]map[string]string)
}

func (c *Client) syncLocked(gen uint64) {
	if c.gen != gen {
		c.gen = gen
		c.values = make(map[string]map[string]string)
	}
}

func (c *Client) idle(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.LastActiveAt) > timeout
}

// ClientManager handles client creation, lookup, and cleanup.
type ClientManager struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	idleTimeout time.Duration
}

// NewClientManager creates a manager that forgets clients idle for longer
// than idleTimeout.
func NewClientManager(idleTimeout time.Duration) *ClientManager {
	return &ClientManager{
		clients:     make(map[string]*Client),
		idleTimeout: idleTimeout,
	}
}

func (m *ClientManager) Create() *Client {
	c := newClient()
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	return c
}

// Get retrieves a client by ID. Returns nil if not found or idle.
func (m *ClientManager) Get(id string) *Client {
	m.mu.RLock()
	c, ok := m.clients[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if c.idle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return c
}

func (m *ClientManager) Remove(id string) {
	m.mu.Lock()
	delete(m.clients, id)
	m.mu.Unlock()
}

// Len returns the number of tracked clients.
func (m *ClientManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ResetAll clears the collected values of every client.
func (m *ClientManager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		c.Reset()
	}
}

// Cleanup removes idle clients.
func (m *ClientManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.clients {
		if c.idle(m.idleTimeout) {
			delete(m.clients, id)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (m *ClientManager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}

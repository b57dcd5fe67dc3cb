package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"nous-core/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries pushes between instances sharing a Redis.
const ClusterChannel = "nous_stream_events"

// Hub keeps at most one live client per session key. A newer connection for
// the same key replaces the older one.
type Hub struct {
	// scope separates the progress and chat hubs on the shared channel.
	scope string

	mu      sync.Mutex
	clients map[string]*Client

	// Redis connection for cross-instance delivery; nil runs single-node.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Scope   string          `json:"scope"`
	Key     string          `json:"key"`
	Message json.RawMessage `json:"message"`
}

func NewHub(scope string, rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		scope:      scope,
		clients:    make(map[string]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run relays pushes published by other instances until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.handleCluster([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleCluster(raw []byte) {
	var m clusterMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		h.logger.Warn("HUB", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if m.Origin == h.instanceID || m.Scope != h.scope {
		return
	}
	h.deliver(m.Key, m.Message)
}

// Attach registers c under its key, closing any previous client for the key.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.clients[c.Key]; ok && prev != c {
		prev.close()
		h.logger.Info("HUB", "Client replaced", map[string]interface{}{"scope": h.scope, "key": c.Key})
	}
	h.clients[c.Key] = c
	h.logger.Info("HUB", "Client registered", map[string]interface{}{"scope": h.scope, "key": c.Key})
}

// Detach removes c if it is still the registered client for its key.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c *Client) {
	if cur, ok := h.clients[c.Key]; ok && cur == c {
		delete(h.clients, c.Key)
		h.logger.Info("HUB", "Client unregistered", map[string]interface{}{"scope": h.scope, "key": c.Key})
	}
	c.close()
}

// Disconnect drops whichever client is registered for key.
func (h *Hub) Disconnect(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[key]; ok {
		h.detachLocked(c)
	}
}

// Push sends v to the client registered for key and to other instances.
// It never blocks; it reports whether a local client accepted the message.
func (h *Hub) Push(key string, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("HUB", "Failed to encode push", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}

	delivered := h.deliver(key, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instanceID, Scope: h.scope, Key: key, Message: data})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("HUB", "Cluster publish failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return delivered
}

// deliver hands data to the local client. A full or closed send buffer is
// treated as a disconnect.
func (h *Hub) deliver(key string, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[key]
	if !ok {
		return false
	}
	return h.offerLocked(c, data)
}

// offer queues data for one specific client.
func (h *Hub) offer(c *Client, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offerLocked(c, data)
}

func (h *Hub) offerLocked(c *Client, data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		h.logger.Warn("HUB", "Client Send buffer full, dropping client", map[string]interface{}{"scope": h.scope, "key": c.Key})
		h.detachLocked(c)
		return false
	}
}

func (h *Hub) Connected(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[key]
	return ok
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

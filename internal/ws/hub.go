package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// Hub is the in-process fan-out registry. Groups are keyed by opaque strings
// ("user:<id>", "chat:<room>") and hold any number of connections; a group
// with no subscribers simply does not exist.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	logger  *zap.Logger
	metrics *Metrics
}

func NewHub(logger *zap.Logger, metrics *Metrics) *Hub {
	return &Hub{
		groups:  make(map[string]map[*Client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) Subscribe(group string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}

	if _, ok := members[client]; !ok {
		members[client] = struct{}{}
		h.metrics.Connections.Inc()
	}
}

// Unsubscribe removes the client from the group and drops the group when it
// empties. Unsubscribing a client that was never enrolled is a no-op.
func (h *Hub) Unsubscribe(group string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return
	}

	if _, ok := members[client]; !ok {
		return
	}

	delete(members, client)
	h.metrics.Connections.Dec()

	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Publish delivers the payload to every current subscriber of the group. An
// empty group is silently skipped: the durable row already exists and the
// recipient reconciles on reconnect. Slow subscribers are skipped, not waited
// on.
func (h *Hub) Publish(ctx context.Context, group string, payload []byte) error {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.groups[group]))
	for client := range h.groups[group] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		if client.push(payload) {
			h.metrics.Delivered.Inc()
			continue
		}

		h.metrics.Dropped.Inc()
		mylogger.Warn(
			ctx,
			h.logger,
			"Dropped message for slow websocket client",
			zap.String("group", group),
		)
	}

	return nil
}

// GroupSize is used by tests and connect-time diagnostics.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[group])
}

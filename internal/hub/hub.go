package hub

import (
	"log/slog"
	"sync"

	"trade_quest/internal/domain"
)

// Hub fans trigger events out to per-owner observers. At most one observer
// per owner is held; registering again replaces the previous one. Delivery
// is best effort: no observer means the event is dropped, and a failing
// observer never blocks or fails the publisher.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]domain.Observer
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[string]domain.Observer),
	}
}

// Register attaches an observer for an owner, replacing any existing one.
func (h *Hub) Register(ownerID string, obs domain.Observer) {
	h.mu.Lock()
	h.observers[ownerID] = obs
	h.mu.Unlock()
}

// Unregister detaches the owner's observer, but only if it is still the
// given one. A connection that was already replaced must not tear down its
// successor when it closes.
func (h *Hub) Unregister(ownerID string, obs domain.Observer) {
	h.mu.Lock()
	if current, ok := h.observers[ownerID]; ok && current == obs {
		delete(h.observers, ownerID)
	}
	h.mu.Unlock()
}

// Publish delivers an event to the owner's observer, if any.
func (h *Hub) Publish(ev domain.TriggerEvent) {
	h.mu.RLock()
	obs := h.observers[ev.OwnerID]
	h.mu.RUnlock()

	if obs == nil {
		return
	}
	if err := obs.Send(ev); err != nil {
		slog.Debug("observer delivery failed", slog.String("owner", ev.OwnerID), slog.Any("error", err))
	}
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

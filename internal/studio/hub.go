package studio

import (
	"context"
	"strings"
	"sync"
	"time"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/identity"
	"promptarchitect/internal/infra"
)

const sessionRefreshTimeout = 15 * time.Second

type hubEntry struct {
	c        *Coordinator
	lastUsed time.Time
}

// Hub holds one Coordinator per device and keeps their sessions in step
// with the identity broker.
type Hub struct {
	deps    Deps
	idleTTL time.Duration
	logger  infra.Logger

	mu          sync.Mutex
	devices     map[string]*hubEntry
	unsubscribe func()
}

// NewHub subscribes to broker; Close releases the subscription.
func NewHub(deps Deps, broker *identity.Broker, idleTTL time.Duration) *Hub {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &Hub{
		deps:    deps,
		idleTTL: idleTTL,
		logger:  deps.Logger,
		devices: make(map[string]*hubEntry),
	}
	if broker != nil {
		h.unsubscribe = broker.Subscribe(h.onSession)
	}
	return h
}

// Get returns the device's coordinator, creating it on first use.
func (h *Hub) Get(deviceID string) (*Coordinator, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.ErrValidation
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.devices[deviceID]; ok {
		e.lastUsed = h.deps.Now()
		return e.c, nil
	}
	c, err := NewCoordinator(deviceID, h.deps)
	if err != nil {
		return nil, err
	}
	h.devices[deviceID] = &hubEntry{c: c, lastUsed: h.deps.Now()}
	return c, nil
}

// Len returns the number of live coordinators.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.devices)
}

func (h *Hub) onSession(e identity.Event) {
	c, err := h.Get(e.DeviceID)
	if err != nil {
		h.logger.Warn().Err(err).Str("device_id", e.DeviceID).Msg("session event for unusable device")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionRefreshTimeout)
	defer cancel()
	if err := c.SetSession(ctx, e.Session); err != nil {
		h.logger.Warn().Err(err).Str("device_id", e.DeviceID).Msg("refresh after session change failed")
	}
}

// Evict drops coordinators idle for longer than the TTL that have nothing in
// flight, and returns how many were removed.
func (h *Hub) Evict() int {
	if h.idleTTL <= 0 {
		return 0
	}
	cutoff := h.deps.Now().Add(-h.idleTTL)
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, e := range h.devices {
		if e.lastUsed.After(cutoff) || !e.c.idle() {
			continue
		}
		delete(h.devices, id)
		n++
	}
	return n
}

// Run evicts idle coordinators until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(max(h.idleTTL/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Evict(); n > 0 {
				h.logger.Debug().Int("evicted", n).Msg("evicted idle drafts")
			}
		}
	}
}

// Close unsubscribes from the identity broker.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

func (c *Coordinator) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) == 0
}

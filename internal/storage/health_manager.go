package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Health is the last observed state of one backend.
type Health struct {
	Component string    `json:"component"`
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthManager keeps the most recent health of each component in memory.
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]Health
}

// NewHealthManager returns an empty manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{health: make(map[string]Health)}
}

// Update records h under its component name.
func (hm *HealthManager) Update(h Health) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.health[h.Component] = h
}

// Get returns the last recorded health of component.
func (hm *HealthManager) Get(component string) (Health, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	h, ok := hm.health[component]
	return h, ok
}

// All returns every recorded health, sorted by component.
func (hm *HealthManager) All() []Health {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	out := make([]Health, 0, len(hm.health))
	for _, h := range hm.health {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// Healthy reports whether every recorded component is healthy and none is older
// than maxAge. An empty manager is unhealthy.
func (hm *HealthManager) Healthy(maxAge time.Duration) bool {
	all := hm.All()
	if len(all) == 0 {
		return false
	}
	for _, h := range all {
		if h.Status != StatusHealthy || time.Since(h.LastCheck) > maxAge {
			return false
		}
	}
	return true
}

// Check pings p once and records the outcome under component.
func (hm *HealthManager) Check(ctx context.Context, component string, p Pinger) Health {
	h := Health{Component: component, LastCheck: time.Now(), Status: StatusHealthy, Message: "ping: OK"}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		h.Status = StatusUnhealthy
		h.Message = "ping failed"
		h.Error = err.Error()
	}
	hm.Update(h)
	return h
}

// Monitor checks p immediately and then every interval until ctx ends. Status
// changes are logged.
func (hm *HealthManager) Monitor(ctx context.Context, component string, p Pinger, interval time.Duration, logger *zap.SugaredLogger) {
	if interval <= 0 {
		interval = time.Minute
	}
	last := ""
	check := func() {
		h := hm.Check(ctx, component, p)
		if h.Status == last {
			return
		}
		last = h.Status
		if h.Status == StatusHealthy {
			logger.Infow("backend healthy", "component", component)
		} else {
			logger.Warnw("backend unhealthy", "component", component, "error", h.Error)
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			logger.Infow("stopping health monitor", "component", component)
			return
		}
	}
}

package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const maxHealthErrors = 5

// HealthChecker reports engine liveness. A running engine that has not
// ticked within staleAfter is degraded.
type HealthChecker struct {
	startTime  time.Time
	staleAfter time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	running  bool
	lastTick time.Time
	errors   []string
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Running   bool      `json:"running"`
	LastTick  time.Time `json:"last_tick"`
	Uptime    string    `json:"uptime"`
	Errors    []string  `json:"errors,omitempty"`
}

func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// SetRunning records whether the engine loop is active.
func (h *HealthChecker) SetRunning(running bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = running
}

// MarkTick records a completed engine iteration.
func (h *HealthChecker) MarkTick() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = h.now()
}

// RecordError keeps the latest error messages for the report.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > maxHealthErrors {
		h.errors = h.errors[len(h.errors)-maxHealthErrors:]
	}
}

// Status builds the current report.
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := "healthy"
	switch {
	case !h.running:
		status = "stopped"
	case h.lastTick.IsZero() || now.Sub(h.lastTick) > h.staleAfter:
		status = "degraded"
	}

	return HealthStatus{
		Status:    status,
		Timestamp: now,
		Running:   h.running,
		LastTick:  h.lastTick,
		Uptime:    now.Sub(h.startTime).Truncate(time.Second).String(),
		Errors:    append([]string(nil), h.errors...),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}

// Package health serves the liveness, readiness and status endpoints.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"vcanchor/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Checker is a named dependency check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function into a Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.CheckName }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

type Handler struct {
	startTime   time.Time
	environment string
	timeout     time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		timeout:     5 * time.Second,
	}
}

// RegisterCheck adds a dependency to the readiness endpoint.
func (h *Handler) RegisterCheck(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check concurrently and returns 503
// when any of them fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(checkers))
	for _, c := range checkers {
		go func(c Checker) {
			results <- result{name: c.Name(), err: c.Check(ctx)}
		}(c)
	}

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checkers))}
	for range checkers {
		res := <-results
		if res.err != nil {
			resp.Checks[res.name] = "down: " + res.err.Error()
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[res.name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

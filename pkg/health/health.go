// Package health exposes liveness and readiness endpoints for the long-running
// processor. Dependencies register a Check; readiness runs them all and
// reports the worst status.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// Pinger is satisfied by *sql.DB and the redis client wrapper.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingCheck adapts a Pinger into a Check.
func PingCheck(p Pinger) Check {
	return p.PingContext
}

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
		logger: slog.Default().With("component", "health"),
	}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every registered check concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]ComponentHealth, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		c.mu.RLock()
		check := c.checks[name]
		c.mu.RUnlock()
		g.Go(func() error {
			start := time.Now()
			res := ComponentHealth{Status: StatusUp}
			if err := check(gctx); err != nil {
				res.Status = StatusDown
				res.Message = err.Error()
			}
			res.Latency = time.Since(start).Round(time.Millisecond).String()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(names)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, name := range names {
		report.Components[name] = results[i]
		if results[i].Status == StatusDown {
			report.Status = StatusDown
			c.logger.Warn("dependency unhealthy", "check", name, "message", results[i].Message)
		}
	}
	return report
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUp {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}

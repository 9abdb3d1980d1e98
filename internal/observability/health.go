package observability

import (
	"context"
	"log/slog"
	"time"
)

// Each readiness probe gets this long across all checks; a hung database
// ping must not stall the /readyz endpoint indefinitely.
const healthCheckTimeout = 3 * time.Second

// HealthChecker aggregates readiness from the storage backend and workspace.
// Liveness is unconditional; readiness runs every registered check.
type HealthChecker struct {
	checks []namedCheck
	logger *slog.Logger
}

type namedCheck struct {
	name string
	run  func(ctx context.Context) error
}

// HealthStatus is the JSON response for health/readiness endpoints.
type HealthStatus struct {
	Status string                 `json:"status"` // "ok" or "degraded"
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the status of a single dependency check.
type CheckResult struct {
	Status  string `json:"status"`            // "ok" or "fail"
	Message string `json:"message,omitempty"` // Error message on failure.
}

// NewHealthChecker creates a HealthChecker with no checks registered.
func NewHealthChecker(logger *slog.Logger) *HealthChecker {
	return &HealthChecker{logger: logger}
}

// AddCheck registers a named readiness check. Not safe for concurrent use;
// register all checks during startup.
func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error) {
	h.checks = append(h.checks, namedCheck{name: name, run: check})
}

// CheckHealth reports liveness: "ok" whenever the process is running.
func (h *HealthChecker) CheckHealth() HealthStatus {
	return HealthStatus{Status: "ok"}
}

// CheckReady runs every registered check and aggregates the results.
// One failing dependency degrades the whole status but does not stop the
// remaining checks, so the response names every broken dependency at once.
func (h *HealthChecker) CheckReady(ctx context.Context) HealthStatus {
	if len(h.checks) == 0 {
		return HealthStatus{Status: "ok"}
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status: "ok",
		Checks: make(map[string]CheckResult, len(h.checks)),
	}
	for _, c := range h.checks {
		result := h.runCheck(ctx, c)
		status.Checks[c.name] = result
		if result.Status != "ok" {
			status.Status = "degraded"
		}
	}
	return status
}

func (h *HealthChecker) runCheck(ctx context.Context, c namedCheck) CheckResult {
	err := c.run(ctx)
	if err == nil {
		return CheckResult{Status: "ok"}
	}
	if h.logger != nil {
		h.logger.Warn("readiness check failed",
			slog.String("check", c.name),
			slog.String("error", err.Error()),
		)
	}
	return CheckResult{Status: "fail", Message: err.Error()}
}

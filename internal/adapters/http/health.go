package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by the health endpoint; set at build time.
var Version = "dev"

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		})
	}
}

// dependencyProbe checks one backing service. A nil check means the
// dependency was not wired.
type dependencyProbe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

func probeStatus(ctx context.Context, p dependencyProbe) (string, bool) {
	if p.check == nil {
		return "not configured", !p.required
	}
	if err := p.check(ctx); err != nil {
		return "error: " + err.Error(), !p.required
	}
	return "ok", true
}

func readinessProbes(deps *Dependencies) []dependencyProbe {
	probes := []dependencyProbe{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		probes[0].check = deps.DB.Ping
	}
	if deps.NATS != nil {
		probes[1].check = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errors.New(deps.NATS.Status().String())
			}
			return nil
		}
	}
	if deps.Cache != nil {
		probes[2].check = deps.Cache.Ping
	}
	return probes
}

// ReadyHandler probes the database, NATS and Valkey. Only the database gates
// readiness; the others degrade to reduced functionality.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		for _, p := range readinessProbes(deps) {
			status, ok := probeStatus(ctx, p)
			checks[p.name] = status
			ready = ready && ok
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}

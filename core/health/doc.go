// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All dependency checks pass
//   - NoContent: Returns 204 for minimal overhead
//
// Usage:
//
//	r.Get("/health/live", health.Liveness)
//	r.Get("/health/ready", health.Readiness(log,
//		health.Check("bus", busOpen),
//		health.Check("listener", listening),
//	))
//	r.Get("/ping", health.NoContent)
//
// Dependency checks follow the func(context.Context) error signature.
package health

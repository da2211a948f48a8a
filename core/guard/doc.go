// Package guard provides the guardrail primitives that shield the
// rate-limited remote metadata API: a sliding-window rate limiter, a
// three-state circuit breaker, and a bounded worker pool that preserves
// input ordering of results.
//
// The primitives are independent and composable. They are constructed
// explicitly and injected by the caller; there are no package-level
// singletons, so one process can run independent configurations.
package guard

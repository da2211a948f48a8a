// Package source defines the Source abstraction over remote metadata
// stores and the local filesystem inventory.
//
// Org implements Source on object storage (one prefix per org alias in a
// shared bucket). Guarded composes any Source with the rate limiter and
// circuit breaker guardrails. Local is the advisory local inventory the
// incremental diff compares against.
package source

// Package middleware groups the Fiber middlewares: ray id assignment for
// request tracing and API key authentication.
package middleware

package source

import (
	"context"
	"fmt"

	"permsync/core/fault"
	"permsync/core/guard"
)

// Guarded wraps a Source with a rate limiter and circuit breaker. One
// limiter and one breaker are shared by every operation touching the same
// org, so the guardrails actually limit; they are injected, not
// constructed per call.
type Guarded struct {
	inner   Source
	limiter *guard.RateLimiter
	breaker *guard.CircuitBreaker
}

// NewGuarded wraps src with the given guardrails.
func NewGuarded(src Source, limiter *guard.RateLimiter, breaker *guard.CircuitBreaker) *Guarded {
	return &Guarded{inner: src, limiter: limiter, breaker: breaker}
}

// Alias implements Source.
func (g *Guarded) Alias() string {
	return g.inner.Alias()
}

// APIVersion implements Source.
func (g *Guarded) APIVersion() string {
	return g.inner.APIVersion()
}

// ListResources implements Source through the guardrails.
func (g *Guarded) ListResources(ctx context.Context, resourceType string) ([]string, error) {
	var names []string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		names, err = g.inner.ListResources(ctx, resourceType)
		return err
	})
	return names, err
}

// ReadResource implements Source through the guardrails.
func (g *Guarded) ReadResource(ctx context.Context, resourceType, name string) ([]byte, error) {
	var data []byte
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		data, err = g.inner.ReadResource(ctx, resourceType, name)
		return err
	})
	return data, err
}

// call runs fn behind the breaker and limiter. A breaker rejection is a
// guardrail error ("we refused to call"), typed distinctly from a remote
// failure ("the remote refused"); it is not recorded as a remote failure.
func (g *Guarded) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.breaker.Allow(); err != nil {
		return fault.System(err, fmt.Sprintf("source %s guarded", g.inner.Alias()))
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		g.breaker.RecordFailure()
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}

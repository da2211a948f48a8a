package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"permsync/core/cache"
	"permsync/core/fault"
	"permsync/core/guard"
	"permsync/core/logger"
	"permsync/core/source"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine runs retrievals and multi-source comparisons. Remote calls flow
// through the payload cache, and fan-out runs inside the bounded worker
// pool. Guardrails live on the sources themselves (source.Guarded), so
// they are shared by every operation touching the same org.
type Engine struct {
	log         *zap.Logger
	cache       *cache.Cache
	ttl         time.Duration
	concurrency int
}

// NewEngine creates an engine. concurrency bounds per-operation fan-out.
func NewEngine(log *zap.Logger, c *cache.Cache, ttl time.Duration, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Engine{log: log, cache: c, ttl: ttl, concurrency: concurrency}
}

// fetch reads one resource payload, cache first.
func (e *Engine) fetch(ctx context.Context, src source.Source, resourceType, name string) ([]byte, error) {
	key := cache.Key{
		Source:   src.Alias(),
		Resource: resourceType + "/" + name,
		Version:  src.APIVersion(),
	}
	return e.cache.GetOrFetch(ctx, key, e.ttl, func(ctx context.Context) ([]byte, error) {
		return src.ReadResource(ctx, resourceType, name)
	})
}

// Retrieve pulls the incremental working set of the given resource types
// from one org into the local store. Members already present locally are
// skipped; a failed local scan degrades to a full retrieval; a failed
// remote listing fails the operation.
func (e *Engine) Retrieve(ctx context.Context, local LocalStore, remote source.Source, resourceTypes []string) (*RetrieveReport, error) {
	report := &RetrieveReport{
		OperationID: uuid.NewString(),
		SourceAlias: remote.Alias(),
		PerType:     make(map[string]*TypeRetrieval, len(resourceTypes)),
	}
	log := logger.WithOperation(e.log, report.OperationID)

	plan, err := WorkingSet(ctx, log, local, remote, resourceTypes)
	if err != nil {
		return nil, err
	}

	for rt, tr := range plan {
		rt, tr := rt, tr
		log.Info("Retrieving working set",
			zap.String("resource_type", rt),
			zap.Int("pending", len(tr.Pending)),
			zap.Int("skipped", len(tr.Skipped)))

		tasks := make([]guard.Task[[]byte], len(tr.Pending))
		for i, name := range tr.Pending {
			name := name
			tasks[i] = func(ctx context.Context) ([]byte, error) {
				return e.fetch(ctx, remote, rt, name)
			}
		}

		outcomes := guard.Run(ctx, e.concurrency, tasks)
		for i, o := range outcomes {
			name := tr.Pending[i]
			if !o.Succeeded() {
				tr.Failed = append(tr.Failed, MemberFailure{Name: name, Err: o.Err})
				continue
			}
			if err := local.Write(rt, name, o.Value); err != nil {
				tr.Failed = append(tr.Failed, MemberFailure{Name: name, Err: err})
				continue
			}
			tr.Fetched = append(tr.Fetched, name)
		}
		tr.Pending = nil
		report.PerType[rt] = tr
	}

	return report, report.Err()
}

// RetrieveResource fans one resource out across all sources concurrently
// and assembles the comparison matrix. Sources fail independently; the
// matrix is only refused when every source failed.
func (e *Engine) RetrieveResource(ctx context.Context, resourceType, name string, sources []source.Source) (*ComparisonMatrix, error) {
	tasks := make([]guard.Task[[]byte], len(sources))
	for i, src := range sources {
		src := src
		tasks[i] = func(ctx context.Context) ([]byte, error) {
			return e.fetch(ctx, src, resourceType, name)
		}
	}

	// All sources start before any is awaited; execution overlaps.
	outcomes := guard.Run(ctx, len(sources), tasks)

	results := make([]RetrievalOutcome, len(sources))
	for i, o := range outcomes {
		results[i] = RetrievalOutcome{
			SourceAlias: sources[i].Alias(),
			Resource:    name,
			Payload:     o.Value,
			Succeeded:   o.Succeeded(),
			Err:         o.Err,
		}
	}
	return NewMatrix(name, results)
}

// CompareMultiSource retrieves each named resource from every source and
// buckets the outcomes: full matrices, partial matrices with named failed
// sources, and resources for which every source failed. The operation
// fails outright only when zero resources produced a usable matrix.
func (e *Engine) CompareMultiSource(ctx context.Context, resourceType string, names []string, sources []source.Source) (*Report, error) {
	if len(names) == 0 {
		return nil, fault.User("no resources requested", "pass at least one resource name")
	}
	if len(sources) == 0 {
		return nil, fault.User("no sources configured", "configure at least one org source alias")
	}

	report := &Report{
		OperationID:  uuid.NewString(),
		ResourceType: resourceType,
	}
	log := logger.WithOperation(e.log, report.OperationID)

	// Each resource's multi-source retrieval is itself one pooled task.
	tasks := make([]guard.Task[*ComparisonMatrix], len(names))
	for i, name := range names {
		name := name
		tasks[i] = func(ctx context.Context) (*ComparisonMatrix, error) {
			return e.RetrieveResource(ctx, resourceType, name, sources)
		}
	}

	outcomes := guard.Run(ctx, e.concurrency, tasks)
	for i, o := range outcomes {
		name := names[i]
		if !o.Succeeded() {
			var msErr *MultiSourceError
			if errors.As(o.Err, &msErr) {
				report.Failed = append(report.Failed, ResourceFailure{Resource: name, Failures: msErr.Failures})
			} else {
				report.Failed = append(report.Failed, ResourceFailure{
					Resource: name,
					Failures: []SourceFailure{{Alias: "*", Err: o.Err}},
				})
			}
			log.Warn("Resource failed on every source", zap.String("resource", name), zap.Error(o.Err))
			continue
		}
		m := o.Value
		if m.Partial() {
			report.Partial = append(report.Partial, m)
		} else {
			report.Full = append(report.Full, m)
		}
	}

	if len(report.Full)+len(report.Partial) == 0 {
		return nil, fault.Terminal(
			&MultiSourceError{Resource: resourceType, Failures: flatten(report.Failed)},
			fmt.Sprintf("no resource produced a usable matrix (%d requested)", len(names)))
	}
	return report, nil
}

// flatten collects every source failure for the aggregate terminal error.
func flatten(failed []ResourceFailure) []SourceFailure {
	var out []SourceFailure
	for _, rf := range failed {
		out = append(out, rf.Failures...)
	}
	return out
}

package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"permsync/core/cache"
	"permsync/core/database"
	"permsync/core/fault"
	"permsync/core/merge"
	"permsync/core/source"
	"permsync/core/syncer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the permission-metadata surface: retrieve, compare, merge,
// plus cache maintenance and the audit history. It owns the configured
// org sources and the local metadata tree.
type Service struct {
	logger  *zap.Logger
	engine  *syncer.Engine
	sources []source.Source
	local   *source.Local
	cache   *cache.Cache
	audit   *database.AuditStore
}

// NewService creates the service. audit may be nil when no database is
// configured; history is then empty and recording is skipped.
func NewService(logger *zap.Logger, engine *syncer.Engine, sources []source.Source, local *source.Local, c *cache.Cache, audit *database.AuditStore) *Service {
	return &Service{
		logger:  logger,
		engine:  engine,
		sources: sources,
		local:   local,
		cache:   c,
		audit:   audit,
	}
}

// MergeOptions gates what a merge run is allowed to do. The default is a
// plan: conflicts and the merged result are reported but nothing is
// written. Apply must be set explicitly to write the result locally.
type MergeOptions struct {
	// Strategy names the resolution strategy.
	Strategy string
	// Apply writes the merged payload to the local tree when it differs.
	Apply bool
	// Prompter resolves conflicts for the interactive strategy.
	Prompter merge.Prompter
}

// MergeResult is the outcome of one merge run.
type MergeResult struct {
	// Merged is the resolver's output.
	Merged *merge.MergedPayload `json:"merged"`
	// Written reports whether the local file was updated.
	Written bool `json:"written"`
}

// sourceByAlias resolves one configured source.
func (s *Service) sourceByAlias(alias string) (source.Source, error) {
	for _, src := range s.sources {
		if src.Alias() == alias {
			return src, nil
		}
	}
	return nil, fault.User(
		fmt.Sprintf("unknown source alias %q", alias),
		fmt.Sprintf("configured aliases: %s", strings.Join(s.aliases(), ", ")))
}

func (s *Service) aliases() []string {
	out := make([]string, len(s.sources))
	for i, src := range s.sources {
		out[i] = src.Alias()
	}
	return out
}

// selectSources resolves the requested aliases, defaulting to every
// configured source when none are named.
func (s *Service) selectSources(aliases []string) ([]source.Source, error) {
	if len(aliases) == 0 {
		return s.sources, nil
	}
	out := make([]source.Source, 0, len(aliases))
	for _, a := range aliases {
		src, err := s.sourceByAlias(a)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// Retrieve pulls the incremental working set of the given resource types
// from one org into the local tree and records the run in the audit log.
func (s *Service) Retrieve(ctx context.Context, alias string, resourceTypes []string) (*syncer.RetrieveReport, error) {
	src, err := s.sourceByAlias(alias)
	if err != nil {
		return nil, err
	}
	if len(resourceTypes) == 0 {
		return nil, fault.User("no resource types requested", "pass at least one resource type, e.g. profiles")
	}

	started := time.Now()
	report, err := s.engine.Retrieve(ctx, s.local, src, resourceTypes)
	if report != nil {
		fetched, failed := 0, 0
		for _, tr := range report.PerType {
			fetched += len(tr.Fetched)
			failed += len(tr.Failed)
		}
		status := "ok"
		if err != nil {
			status = "failed"
		} else if failed > 0 {
			status = "partial"
		}
		s.record(ctx, &database.OperationRecord{
			ID:         report.OperationID,
			Kind:       "retrieve",
			Resource:   strings.Join(resourceTypes, ","),
			Sources:    1,
			Succeeded:  fetched,
			Failed:     failed,
			Status:     status,
			StartedAt:  started,
			FinishedAt: time.Now(),
		})
	}
	return report, err
}

// Compare retrieves the named resources from the selected sources and
// builds per-resource comparison matrices.
func (s *Service) Compare(ctx context.Context, resourceType string, names, aliases []string) (*syncer.Report, error) {
	sources, err := s.selectSources(aliases)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report, err := s.engine.CompareMultiSource(ctx, resourceType, names, sources)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &database.OperationRecord{
		ID:         report.OperationID,
		Kind:       "compare",
		Resource:   resourceType,
		Sources:    len(sources),
		Succeeded:  len(report.Full) + len(report.Partial),
		Failed:     len(report.Failed),
		Status:     report.Status(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return report, nil
}

// Merge resolves the local and remote versions of one resource under the
// requested strategy. The result is written back to the local tree only
// when opts.Apply is set and the merge changed anything.
func (s *Service) Merge(ctx context.Context, resourceType, name, alias string, opts MergeOptions) (*MergeResult, error) {
	src, err := s.sourceByAlias(alias)
	if err != nil {
		return nil, err
	}
	strategy, err := merge.ParseStrategy(opts.Strategy)
	if err != nil {
		return nil, err
	}

	localRaw, err := s.local.Read(resourceType, name)
	if err != nil {
		return nil, fault.User(
			fmt.Sprintf("no local copy of %s/%s", resourceType, name),
			"retrieve the resource first")
	}
	matrix, err := s.engine.RetrieveResource(ctx, resourceType, name, []source.Source{src})
	if err != nil {
		return nil, err
	}
	remoteRaw := matrix.PayloadBySource[alias]

	localPayload, root, err := merge.Parse(localRaw)
	if err != nil {
		return nil, err
	}
	remotePayload, _, err := merge.Parse(remoteRaw)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	merged, err := merge.Merge(localPayload, remotePayload, strategy, opts.Prompter)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{Merged: merged}
	if opts.Apply && merged.HasChanges {
		if err := s.local.Write(resourceType, name, merged.Content.Render(root)); err != nil {
			return nil, fault.System(err, "writing merged payload")
		}
		result.Written = true
	}

	s.record(ctx, &database.OperationRecord{
		ID:         uuid.NewString(),
		Kind:       "merge",
		Resource:   resourceType + "/" + name,
		Sources:    1,
		Succeeded:  1,
		Conflicts:  len(merged.Conflicts),
		Status:     "ok",
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return result, nil
}

// CacheStats returns the cache hit/miss counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// PurgeCache removes expired persisted cache records.
func (s *Service) PurgeCache() (int, error) {
	return s.cache.PurgeExpired()
}

// History returns recent operation summaries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]database.OperationRecord, error) {
	return s.audit.Recent(ctx, limit)
}

// record writes an audit row; failures are logged, never propagated.
func (s *Service) record(ctx context.Context, rec *database.OperationRecord) {
	if err := s.audit.Record(ctx, rec); err != nil {
		s.logger.Warn("Audit record failed", zap.String("operation_id", rec.ID), zap.Error(err))
	}
}

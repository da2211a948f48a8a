package syncer

import (
	"context"
	"fmt"

	"permsync/core/async"
	"permsync/core/fault"
	"permsync/core/source"

	"go.uber.org/zap"
)

// LocalScanner is the advisory local inventory consulted by the
// incremental diff.
type LocalScanner interface {
	Scan(resourceType string) ([]string, error)
}

// WorkingSet computes, per resource type, the members that exist remotely
// but not locally: the minimal retrieval set.
//
// The asymmetry is deliberate. Local state is an optimization: a failed
// scan degrades to "fetch everything" with a logged event. Remote state is
// authoritative: a failed remote listing has no fallback and fails the
// operation.
func WorkingSet(ctx context.Context, log *zap.Logger, local LocalScanner, remote source.Source, resourceTypes []string) (map[string]*TypeRetrieval, error) {
	out := make(map[string]*TypeRetrieval, len(resourceTypes))

	for _, rt := range resourceTypes {
		rt := rt

		remoteList := async.New(func(ctx context.Context) ([]string, error) {
			return remote.ListResources(ctx, rt)
		})
		localList := async.New(func(ctx context.Context) ([]string, error) {
			return local.Scan(rt)
		}).Recover(func(err error) async.Computation[[]string] {
			// Degrade to a full listing; visible in logs, not in errors.
			log.Warn("Local scan failed, falling back to full listing",
				zap.String("resource_type", rt),
				zap.Error(err))
			return async.Pure[[]string](nil)
		})

		remoteMembers, err := remoteList.Run(ctx).Unpack()
		if err != nil {
			return nil, fault.Terminal(err, fmt.Sprintf("remote listing of %s failed", rt))
		}
		localMembers, _ := localList.Run(ctx).Unpack()

		listing := NewListing(rt, remoteMembers)
		missing, present := Missing(NewListing(rt, localMembers), listing)
		out[rt] = &TypeRetrieval{
			Listing: listing,
			Pending: missing,
			Skipped: present,
		}
	}

	return out, nil
}

// Missing splits the remote members into those absent locally (to fetch)
// and those already present (to skip). Both inputs are sorted listings.
func Missing(local, remote MetadataListing) (missing, present []string) {
	have := make(map[string]struct{}, len(local.Members))
	for _, m := range local.Members {
		have[m] = struct{}{}
	}
	for _, m := range remote.Members {
		if _, ok := have[m]; ok {
			present = append(present, m)
		} else {
			missing = append(missing, m)
		}
	}
	return missing, present
}

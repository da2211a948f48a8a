package syncer

import (
	"sort"

	"permsync/core/fault"
)

// MetadataListing is the member inventory of one resource type, as seen by
// one source (remote org or local tree). Members are sorted and unique;
// comparisons are case-sensitive exact matches.
type MetadataListing struct {
	// Type is the resource type, e.g. "profiles".
	Type string `json:"type"`
	// Members are the member names, sorted, without duplicates.
	Members []string `json:"members"`
}

// NewListing builds a listing with members deduplicated and sorted.
func NewListing(resourceType string, members []string) MetadataListing {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m]; dup || m == "" {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return MetadataListing{Type: resourceType, Members: out}
}

// RetrievalOutcome is the result of retrieving one resource from one source.
type RetrievalOutcome struct {
	// SourceAlias identifies the org source.
	SourceAlias string `json:"source"`
	// Resource is the resource name.
	Resource string `json:"resource"`
	// Payload is the retrieved content; nil when the retrieval failed.
	Payload []byte `json:"-"`
	// Succeeded reports whether Payload is usable.
	Succeeded bool `json:"succeeded"`
	// Err is the retrieval error when Succeeded is false.
	Err error `json:"-"`
}

// SourceFailure names one failed source and its error.
type SourceFailure struct {
	// Alias is the failed source.
	Alias string `json:"alias"`
	// Err is what went wrong.
	Err error `json:"-"`
}

// ComparisonMatrix maps sources to retrieved payloads for one resource,
// plus bookkeeping of which sources failed. PayloadBySource has an entry
// exactly for the sources in SucceededSources.
type ComparisonMatrix struct {
	// Resource is the resource name.
	Resource string `json:"resource"`
	// PayloadBySource maps source alias to retrieved payload.
	PayloadBySource map[string][]byte `json:"-"`
	// SucceededSources lists sources with a payload, in source-set order.
	SucceededSources []string `json:"succeeded_sources"`
	// FailedSources lists sources that failed, with their errors.
	FailedSources []SourceFailure `json:"failed_sources"`
}

// NewMatrix assembles a matrix from per-source outcomes. A matrix with
// zero succeeded sources is invalid and is never constructed; the
// aggregate failure is returned instead.
func NewMatrix(resource string, outcomes []RetrievalOutcome) (*ComparisonMatrix, error) {
	m := &ComparisonMatrix{
		Resource:        resource,
		PayloadBySource: make(map[string][]byte),
	}
	for _, o := range outcomes {
		if o.Succeeded {
			m.PayloadBySource[o.SourceAlias] = o.Payload
			m.SucceededSources = append(m.SucceededSources, o.SourceAlias)
		} else {
			m.FailedSources = append(m.FailedSources, SourceFailure{Alias: o.SourceAlias, Err: o.Err})
		}
	}
	if len(m.SucceededSources) == 0 {
		return nil, &MultiSourceError{Resource: resource, Failures: m.FailedSources}
	}
	return m, nil
}

// Partial reports whether at least one source failed.
func (m *ComparisonMatrix) Partial() bool {
	return len(m.FailedSources) > 0
}

// ResourceFailure records a resource for which every source failed.
type ResourceFailure struct {
	// Resource is the resource name.
	Resource string `json:"resource"`
	// Failures names every source and its error.
	Failures []SourceFailure `json:"failures"`
}

// Report aggregates per-resource outcomes of one compare operation.
type Report struct {
	// OperationID identifies this run in logs and the audit trail.
	OperationID string `json:"operation_id"`
	// ResourceType is the compared resource type.
	ResourceType string `json:"resource_type"`
	// Full holds matrices where every source succeeded.
	Full []*ComparisonMatrix `json:"full"`
	// Partial holds matrices with at least one named failed source.
	Partial []*ComparisonMatrix `json:"partial"`
	// Failed holds resources where every source failed.
	Failed []ResourceFailure `json:"failed"`
}

// Matrices returns every usable matrix, full first.
func (r *Report) Matrices() []*ComparisonMatrix {
	out := make([]*ComparisonMatrix, 0, len(r.Full)+len(r.Partial))
	out = append(out, r.Full...)
	return append(out, r.Partial...)
}

// Status summarizes the report for the audit log.
func (r *Report) Status() string {
	switch {
	case len(r.Failed) == 0 && len(r.Partial) == 0:
		return "ok"
	case len(r.Full)+len(r.Partial) > 0:
		return "partial"
	default:
		return "failed"
	}
}

// LocalStore is the local filesystem side of a retrieval: an advisory
// inventory plus a destination for fetched payloads.
type LocalStore interface {
	// Scan lists local members of one resource type.
	Scan(resourceType string) ([]string, error)
	// Write stores a fetched payload locally.
	Write(resourceType, name string, data []byte) error
}

// MemberFailure records one member that could not be fetched.
type MemberFailure struct {
	// Name is the member name.
	Name string `json:"name"`
	// Err is the fetch error.
	Err error `json:"-"`
}

// TypeRetrieval is the per-resource-type outcome of a retrieve operation.
type TypeRetrieval struct {
	// Listing is the authoritative remote inventory.
	Listing MetadataListing `json:"listing"`
	// Pending is the working set still to be fetched: members present
	// remotely and absent locally.
	Pending []string `json:"-"`
	// Fetched lists members retrieved and written locally.
	Fetched []string `json:"fetched"`
	// Skipped lists members already present locally (incremental diff).
	Skipped []string `json:"skipped"`
	// Failed lists members whose retrieval failed.
	Failed []MemberFailure `json:"failed"`
}

// RetrieveReport aggregates a retrieve operation across resource types.
type RetrieveReport struct {
	// OperationID identifies this run.
	OperationID string `json:"operation_id"`
	// SourceAlias is the org retrieved from.
	SourceAlias string `json:"source"`
	// PerType maps resource type to its outcome.
	PerType map[string]*TypeRetrieval `json:"per_type"`
}

// Err returns the terminal error when nothing usable was retrieved.
func (r *RetrieveReport) Err() error {
	fetched, failed := 0, 0
	for _, tr := range r.PerType {
		fetched += len(tr.Fetched) + len(tr.Skipped)
		failed += len(tr.Failed)
	}
	if fetched == 0 && failed > 0 {
		return fault.Terminal(nil, "every requested member failed to retrieve")
	}
	return nil
}

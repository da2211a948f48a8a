// Package syncer is the synchronization engine: incremental local/remote
// diffing, cache-aware retrieval, and multi-source comparison-matrix
// construction under partial failure.
//
// # Failure policy
//
// Local state is advisory: a failed local scan degrades to a full remote
// listing with a logged event. Remote listings are authoritative: their
// failures are fatal for the operation. Partial multi-source failure
// travels as data (the matrix's FailedSources); only a resource failing on
// every source raises MultiSourceError, and only an operation where zero
// resources produced a matrix fails outright.
//
// # Concurrency
//
// Multi-source retrieval starts every source before awaiting any, and
// multi-resource comparison pools resources through the bounded worker
// pool, so result order always matches input order while wall-clock
// execution overlaps.
package syncer

// Package cache implements the two-tier (memory + persistent) payload
// cache keyed by (source identity, resource key, API version).
//
// The core design invariant: cache errors are never fatal. Corrupt or
// expired records are deleted and reported as misses, persist failures are
// logged and skipped, and on disk exhaustion the cache evicts expired
// records and retries once. The surrounding operation always has the
// fresh-fetch fallback available.
//
// Concurrent cache fills for the same key are deduplicated with
// singleflight, the same stampede protection the rest of the codebase uses.
package cache

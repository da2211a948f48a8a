// Package async provides the explicit-error computation chain used to
// sequence fallible remote and filesystem work.
//
// A Computation is built without side effects and executed with Run; a
// Failure short-circuits the rest of a Chain, Recover turns a failure into
// an explicit fallback, and All joins independent computations that were
// all started before any is awaited.
//
// Computations are not memoized: running one twice re-executes the effect.
package async

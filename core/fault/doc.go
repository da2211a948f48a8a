// Package fault defines the error taxonomy shared by the sync engine.
//
// Errors are classified by who must act on them:
//   - User: bad input, missing resource. Shown with remediation steps.
//   - System: remote failures and guardrail rejections. May be retried.
//   - Internal: violated invariants. A bug; always surfaced.
//
// All helpers produce errors compatible with errors.Is and errors.As, so
// callers can branch on class or sentinel without string matching.
package fault

// Package merge detects element-level conflicts between two versions of a
// resource and resolves them under a chosen strategy. It operates on
// already-retrieved payloads and never touches the network; callers decide
// whether and where to write the result.
package merge

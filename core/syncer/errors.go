package syncer

import (
	"fmt"
	"strings"
)

// MultiSourceError is the aggregate failure raised when every source
// failed for a resource. It is distinct from a below-threshold partial
// failure, which travels as data in the matrix's FailedSources.
type MultiSourceError struct {
	// Resource is the resource whose retrieval failed everywhere.
	Resource string
	// Failures enumerates every source and its error.
	Failures []SourceFailure
}

// Error implements the error interface, naming every failed source.
func (e *MultiSourceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %d sources failed for %q:", len(e.Failures), e.Resource)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, " %s: %v;", f.Alias, f.Err)
	}
	return strings.TrimSuffix(b.String(), ";")
}

package source

import "context"

// Source is one addressable remote metadata store ("org"). Implementations
// must be safe for concurrent use; multi-source retrieval fans out across
// sources from many goroutines at once.
type Source interface {
	// Alias is the display identity of the source.
	Alias() string
	// APIVersion is the metadata API version payloads are retrieved with.
	// It participates in cache keys.
	APIVersion() string
	// ListResources lists the member names of one resource type. The
	// remote listing is authoritative; callers treat failures as fatal.
	ListResources(ctx context.Context, resourceType string) ([]string, error)
	// ReadResource retrieves one resource payload.
	ReadResource(ctx context.Context, resourceType, name string) ([]byte, error)
}

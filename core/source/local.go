package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local is the local filesystem metadata inventory: one directory per
// resource type, one file per member. It is advisory, not authoritative;
// scan failures are degraded by the diff engine, never fatal.
type Local struct {
	root string
}

// NewLocal creates a local inventory rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

// Root returns the inventory root directory.
func (l *Local) Root() string {
	return l.root
}

// Scan lists the members of one resource type present locally, sorted and
// unique.
func (l *Local) Scan(resourceType string) ([]string, error) {
	dir := filepath.Join(l.root, resourceType)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the local payload of one resource.
func (l *Local) Read(resourceType, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.root, resourceType, name+".xml"))
}

// Write stores a payload locally, creating the type directory if needed.
func (l *Local) Write(resourceType, name string, data []byte) error {
	dir := filepath.Join(l.root, resourceType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return os.WriteFile(filepath.Join(dir, name+".xml"), data, 0o644)
}

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// record is the persisted on-disk shape of one cache entry.
type record struct {
	// Data is the cached payload, base64-encoded on disk.
	Data []byte `json:"data"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// TTLSeconds is the entry's time-to-live in seconds.
	TTLSeconds int64 `json:"ttl_seconds"`
}

// store is the persistent tier: one JSON file per (source, resource,
// version) key under a process-wide directory.
type store struct {
	dir string
	now func() time.Time

	// writeFile is swapped in tests to simulate disk exhaustion.
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// newStore creates the cache directory if needed.
func newStore(dir string) (*store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &store{dir: dir, now: time.Now, writeFile: os.WriteFile}, nil
}

// path derives a filesystem-safe file name from the key triple. The
// sanitized parts keep the file name readable; the hash of the raw triple
// keeps the mapping injective when sanitization collapses distinct keys.
func (s *store) path(key Key) string {
	h := fnv.New32a()
	h.Write([]byte(key.Source))
	h.Write([]byte{0})
	h.Write([]byte(key.Resource))
	h.Write([]byte{0})
	h.Write([]byte(key.Version))

	name := fmt.Sprintf("%s__%s__%s-%08x.json",
		sanitize(key.Source), sanitize(key.Resource), sanitize(key.Version), h.Sum32())
	return filepath.Join(s.dir, name)
}

// read loads and validates a persisted record. errCorrupt means the file
// exists but its structure is unusable; callers delete and treat as a miss.
func (s *store) read(key Key) (*record, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotPersisted
		}
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errCorrupt
	}
	// Structural shape check: a record without data or a creation time is
	// not something we can trust.
	if rec.Data == nil || rec.CreatedAt.IsZero() || rec.TTLSeconds < 0 {
		return nil, errCorrupt
	}
	return &rec, nil
}

// write persists a record, returning the raw error for the caller's
// disk-exhaustion handling.
func (s *store) write(key Key, rec *record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.writeFile(s.path(key), raw, 0o644)
}

// remove deletes a persisted record, ignoring records already gone.
func (s *store) remove(key Key) {
	_ = os.Remove(s.path(key))
}

// purgeExpired deletes every persisted record that is past its TTL or
// unreadable. Returns the number removed.
func (s *store) purgeExpired() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	now := s.now()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		full := filepath.Join(s.dir, e.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.CreatedAt.IsZero() || expired(&rec, now) {
			if os.Remove(full) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// expired reports whether the record is past its TTL at the given time.
// A zero TTL means the entry is already expired.
func expired(rec *record, now time.Time) bool {
	if rec.TTLSeconds == 0 {
		return true
	}
	return now.Sub(rec.CreatedAt) > time.Duration(rec.TTLSeconds)*time.Second
}

// diskFull reports whether err is a space-exhaustion-class failure.
func diskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT)
}

// sanitize maps an arbitrary identity string to a filesystem-safe token.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

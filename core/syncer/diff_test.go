package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource is an in-memory org source for engine tests.
type fakeSource struct {
	mu       sync.Mutex
	alias    string
	members  map[string][]string // resourceType -> names
	payloads map[string][]byte   // "type/name" -> payload
	listErr  error
	readErr  error
	reads    int
}

func (f *fakeSource) Alias() string      { return f.alias }
func (f *fakeSource) APIVersion() string { return "58.0" }

func (f *fakeSource) ListResources(ctx context.Context, resourceType string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members[resourceType], nil
}

func (f *fakeSource) ReadResource(ctx context.Context, resourceType, name string) ([]byte, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	p, ok := f.payloads[resourceType+"/"+name]
	if !ok {
		return nil, fmt.Errorf("%s: not found on %s", name, f.alias)
	}
	return p, nil
}

func (f *fakeSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeLocal is an in-memory LocalStore.
type fakeLocal struct {
	mu      sync.Mutex
	members map[string][]string
	written map[string][]byte
	scanErr error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{members: map[string][]string{}, written: map[string][]byte{}}
}

func (f *fakeLocal) Scan(resourceType string) ([]string, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.members[resourceType], nil
}

func (f *fakeLocal) Write(resourceType, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written[resourceType+"/"+name] = data
	return nil
}

func TestNewListingDedupesAndSorts(t *testing.T) {
	l := NewListing("profiles", []string{"Zeta", "Admin", "Zeta", "", "Mid"})
	assert.Equal(t, []string{"Admin", "Mid", "Zeta"}, l.Members)
}

func TestMissingSplitsMembers(t *testing.T) {
	local := NewListing("profiles", []string{"Admin", "Old"})
	remote := NewListing("profiles", []string{"Admin", "New", "Newer"})

	missing, present := Missing(local, remote)
	assert.Equal(t, []string{"New", "Newer"}, missing)
	assert.Equal(t, []string{"Admin"}, present)
}

func TestMissingIsCaseSensitive(t *testing.T) {
	local := NewListing("profiles", []string{"admin"})
	remote := NewListing("profiles", []string{"Admin"})

	missing, _ := Missing(local, remote)
	assert.Equal(t, []string{"Admin"}, missing)
}

func TestWorkingSetIncremental(t *testing.T) {
	remote := &fakeSource{
		alias:   "dev",
		members: map[string][]string{"profiles": {"Admin", "New"}},
	}
	local := newFakeLocal()
	local.members["profiles"] = []string{"Admin"}

	plan, err := WorkingSet(context.Background(), zap.NewNop(), local, remote, []string{"profiles"})
	require.NoError(t, err)
	require.Contains(t, plan, "profiles")
	assert.Equal(t, []string{"New"}, plan["profiles"].Pending)
	assert.Equal(t, []string{"Admin"}, plan["profiles"].Skipped)
}

func TestWorkingSetLocalFailureDegradesToFullListing(t *testing.T) {
	remote := &fakeSource{
		alias:   "dev",
		members: map[string][]string{"profiles": {"A", "B"}},
	}
	local := newFakeLocal()
	local.scanErr = errors.New("directory unreadable")

	plan, err := WorkingSet(context.Background(), zap.NewNop(), local, remote, []string{"profiles"})
	require.NoError(t, err, "local failure must not fail the operation")
	assert.Equal(t, []string{"A", "B"}, plan["profiles"].Pending)
	assert.Empty(t, plan["profiles"].Skipped)
}

func TestWorkingSetRemoteFailureIsFatal(t *testing.T) {
	remote := &fakeSource{alias: "dev", listErr: errors.New("INVALID_SESSION_ID")}
	local := newFakeLocal()

	_, err := WorkingSet(context.Background(), zap.NewNop(), local, remote, []string{"profiles"})
	require.Error(t, err, "remote listing is authoritative; its failure is fatal")
	assert.ErrorContains(t, err, "remote listing")
}

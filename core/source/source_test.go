package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"permsync/core/guard"
	"permsync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func objectChannel(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func TestOrgListResources(t *testing.T) {
	client := new(mocks.Client)
	org := NewOrg("dev", "58.0", client, "metadata")

	client.On("ListObjects", mock.Anything, "metadata", mock.Anything).
		Return(objectChannel(
			"orgs/dev/profiles/Admin.xml",
			"orgs/dev/profiles/ReadOnly.xml",
			"orgs/dev/profiles/Admin.xml", // duplicate listing entry
		))

	names, err := org.ListResources(context.Background(), "profiles")
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "ReadOnly"}, names)
}

func TestOrgListResourcesError(t *testing.T) {
	client := new(mocks.Client)
	org := NewOrg("dev", "58.0", client, "metadata")

	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("access denied")}
	close(ch)
	client.On("ListObjects", mock.Anything, "metadata", mock.Anything).
		Return((<-chan minio.ObjectInfo)(ch))

	_, err := org.ListResources(context.Background(), "profiles")
	assert.ErrorContains(t, err, "access denied")
}

func TestOrgReadResource(t *testing.T) {
	client := new(mocks.Client)
	org := NewOrg("dev", "58.0", client, "metadata")

	client.On("GetObject", mock.Anything, "metadata", "orgs/dev/profiles/Admin.xml", mock.Anything).
		Return(io.NopCloser(bytes.NewBufferString("<Profile/>")), nil)

	data, err := org.ReadResource(context.Background(), "profiles", "Admin")
	require.NoError(t, err)
	assert.Equal(t, []byte("<Profile/>"), data)
}

func TestLocalScanSortedUnique(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "profiles")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range []string{"Zeta.xml", "Admin.xml", "Mid.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("<Profile/>"), 0o644))
	}

	l := NewLocal(root)
	names, err := l.Scan("profiles")
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "Mid", "Zeta"}, names)
}

func TestLocalScanMissingDirectory(t *testing.T) {
	l := NewLocal(t.TempDir())
	_, err := l.Scan("profiles")
	assert.Error(t, err)
}

func TestLocalWriteRead(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("profiles", "Admin", []byte("<Profile/>")))

	data, err := l.Read("profiles", "Admin")
	require.NoError(t, err)
	assert.Equal(t, []byte("<Profile/>"), data)
}

// stubSource counts calls so guardrail behavior is observable.
type stubSource struct {
	alias string
	calls int
	err   error
}

func (s *stubSource) Alias() string      { return s.alias }
func (s *stubSource) APIVersion() string { return "58.0" }

func (s *stubSource) ListResources(ctx context.Context, resourceType string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []string{"Admin"}, nil
}

func (s *stubSource) ReadResource(ctx context.Context, resourceType, name string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("<Profile/>"), nil
}

func TestGuardedRejectsWhileOpenWithoutCallingRemote(t *testing.T) {
	stub := &stubSource{alias: "dev", err: errors.New("remote down")}
	breaker := guard.NewCircuitBreaker(guard.BreakerConfig{Threshold: 1, Window: time.Minute, Cooldown: time.Hour})
	limiter := guard.NewRateLimiter(100, time.Minute)
	g := NewGuarded(stub, limiter, breaker)

	// First call fails and opens the breaker.
	_, err := g.ListResources(context.Background(), "profiles")
	require.Error(t, err)
	require.Equal(t, 1, stub.calls)

	// Second call is rejected by the breaker: the remote is not contacted.
	_, err = g.ListResources(context.Background(), "profiles")
	assert.ErrorIs(t, err, guard.ErrCircuitOpen)
	assert.Equal(t, 1, stub.calls)
}

func TestGuardedRecordsSuccess(t *testing.T) {
	stub := &stubSource{alias: "dev"}
	breaker := guard.NewCircuitBreaker(guard.BreakerConfig{Threshold: 1})
	limiter := guard.NewRateLimiter(100, time.Minute)
	g := NewGuarded(stub, limiter, breaker)

	data, err := g.ReadResource(context.Background(), "profiles", "Admin")
	require.NoError(t, err)
	assert.Equal(t, []byte("<Profile/>"), data)
	assert.Equal(t, guard.StateClosed, breaker.State())
	assert.Equal(t, 1, limiter.InFlight())
}

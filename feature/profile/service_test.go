package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"permsync/core/cache"
	"permsync/core/fault"
	"permsync/core/source"
	"permsync/core/syncer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSrc is an in-memory org source.
type fakeSrc struct {
	alias    string
	members  map[string][]string
	payloads map[string][]byte
	readErr  error
}

func (f *fakeSrc) Alias() string      { return f.alias }
func (f *fakeSrc) APIVersion() string { return "58.0" }

func (f *fakeSrc) ListResources(ctx context.Context, resourceType string) ([]string, error) {
	return f.members[resourceType], nil
}

func (f *fakeSrc) ReadResource(ctx context.Context, resourceType, name string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	p, ok := f.payloads[resourceType+"/"+name]
	if !ok {
		return nil, fmt.Errorf("%s not found", name)
	}
	return p, nil
}

func setupService(t *testing.T, sources ...source.Source) (*Service, *source.Local) {
	t.Helper()
	c, err := cache.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	engine := syncer.NewEngine(zap.NewNop(), c, time.Minute, 4)
	local := source.NewLocal(t.TempDir())
	return NewService(zap.NewNop(), engine, sources, local, c, nil), local
}

func TestRetrieveUnknownAlias(t *testing.T) {
	svc, _ := setupService(t, &fakeSrc{alias: "dev"})

	_, err := svc.Retrieve(context.Background(), "prod", []string{"profiles"})
	require.Error(t, err)
	assert.Equal(t, fault.ClassUser, fault.ClassOf(err))
	assert.ErrorContains(t, err, "dev")
}

func TestRetrieveRequiresResourceTypes(t *testing.T) {
	svc, _ := setupService(t, &fakeSrc{alias: "dev"})

	_, err := svc.Retrieve(context.Background(), "dev", nil)
	require.Error(t, err)
	assert.Equal(t, fault.ClassUser, fault.ClassOf(err))
}

func TestRetrieveWritesLocalTree(t *testing.T) {
	src := &fakeSrc{
		alias:    "dev",
		members:  map[string][]string{"profiles": {"Admin"}},
		payloads: map[string][]byte{"profiles/Admin": []byte("<Profile><custom>true</custom></Profile>")},
	}
	svc, local := setupService(t, src)

	report, err := svc.Retrieve(context.Background(), "dev", []string{"profiles"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, report.PerType["profiles"].Fetched)

	data, err := os.ReadFile(filepath.Join(local.Root(), "profiles", "Admin.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<custom>true</custom>")
}

func TestCompareDefaultsToAllSources(t *testing.T) {
	payload := []byte("<Profile><custom>true</custom></Profile>")
	dev := &fakeSrc{alias: "dev", payloads: map[string][]byte{"profiles/Admin": payload}}
	uat := &fakeSrc{alias: "uat", payloads: map[string][]byte{"profiles/Admin": payload}}
	svc, _ := setupService(t, dev, uat)

	report, err := svc.Compare(context.Background(), "profiles", []string{"Admin"}, nil)
	require.NoError(t, err)
	require.Len(t, report.Full, 1)
	assert.ElementsMatch(t, []string{"dev", "uat"}, report.Full[0].SucceededSources)
}

func TestCompareRejectsUnknownAlias(t *testing.T) {
	svc, _ := setupService(t, &fakeSrc{alias: "dev"})

	_, err := svc.Compare(context.Background(), "profiles", []string{"Admin"}, []string{"nope"})
	require.Error(t, err)
	assert.Equal(t, fault.ClassUser, fault.ClassOf(err))
}

func TestMergeApplyGate(t *testing.T) {
	src := &fakeSrc{
		alias:    "dev",
		payloads: map[string][]byte{"profiles/Admin": []byte("<Profile><custom>true</custom></Profile>")},
	}
	svc, local := setupService(t, src)
	require.NoError(t, local.Write("profiles", "Admin", []byte("<Profile><custom>false</custom></Profile>")))

	// Plan only: conflicts reported, nothing written.
	result, err := svc.Merge(context.Background(), "profiles", "Admin", "dev", MergeOptions{Strategy: "remote-wins"})
	require.NoError(t, err)
	assert.False(t, result.Written)
	require.Len(t, result.Merged.Conflicts, 1)
	assert.True(t, result.Merged.HasChanges)

	data, err := local.Read("profiles", "Admin")
	require.NoError(t, err)
	assert.Contains(t, string(data), "false", "plan must not modify the local tree")

	// Apply writes the merged payload.
	result, err = svc.Merge(context.Background(), "profiles", "Admin", "dev", MergeOptions{Strategy: "remote-wins", Apply: true})
	require.NoError(t, err)
	assert.True(t, result.Written)

	data, err = local.Read("profiles", "Admin")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<custom>true</custom>")
}

func TestMergeNoChangesSkipsWrite(t *testing.T) {
	payload := []byte("<Profile><custom>true</custom></Profile>")
	src := &fakeSrc{alias: "dev", payloads: map[string][]byte{"profiles/Admin": payload}}
	svc, local := setupService(t, src)
	require.NoError(t, local.Write("profiles", "Admin", payload))

	result, err := svc.Merge(context.Background(), "profiles", "Admin", "dev", MergeOptions{Strategy: "union", Apply: true})
	require.NoError(t, err)
	assert.False(t, result.Written)
	assert.False(t, result.Merged.HasChanges)
}

func TestMergeUnknownStrategy(t *testing.T) {
	src := &fakeSrc{alias: "dev"}
	svc, local := setupService(t, src)
	require.NoError(t, local.Write("profiles", "Admin", []byte("<Profile><custom>true</custom></Profile>")))

	_, err := svc.Merge(context.Background(), "profiles", "Admin", "dev", MergeOptions{Strategy: "yolo"})
	require.Error(t, err)
	assert.Equal(t, fault.ClassUser, fault.ClassOf(err))
}

func TestMergeMissingLocalCopy(t *testing.T) {
	src := &fakeSrc{alias: "dev"}
	svc, _ := setupService(t, src)

	_, err := svc.Merge(context.Background(), "profiles", "Ghost", "dev", MergeOptions{Strategy: "union"})
	require.Error(t, err)
	assert.Equal(t, fault.ClassUser, fault.ClassOf(err))
}

func TestMergeRemoteFailure(t *testing.T) {
	src := &fakeSrc{alias: "dev", readErr: errors.New("REQUEST_LIMIT_EXCEEDED")}
	svc, local := setupService(t, src)
	require.NoError(t, local.Write("profiles", "Admin", []byte("<Profile><custom>true</custom></Profile>")))

	_, err := svc.Merge(context.Background(), "profiles", "Admin", "dev", MergeOptions{Strategy: "union"})
	require.Error(t, err)

	var msErr *syncer.MultiSourceError
	assert.ErrorAs(t, err, &msErr)
}

func TestHistoryWithoutDatabase(t *testing.T) {
	svc, _ := setupService(t, &fakeSrc{alias: "dev"})

	recs, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

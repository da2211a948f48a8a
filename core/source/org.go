package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"permsync/core/storage"

	"github.com/minio/minio-go/v7"
)

// Org is a Source backed by object storage. Each org's metadata lives
// under orgs/<alias>/<resourceType>/<name>.xml in a shared bucket.
type Org struct {
	alias      string
	apiVersion string
	client     storage.Client
	bucket     string
}

// NewOrg creates an object-storage-backed org source.
func NewOrg(alias, apiVersion string, client storage.Client, bucket string) *Org {
	return &Org{
		alias:      alias,
		apiVersion: apiVersion,
		client:     client,
		bucket:     bucket,
	}
}

// Alias implements Source.
func (o *Org) Alias() string {
	return o.alias
}

// APIVersion implements Source.
func (o *Org) APIVersion() string {
	return o.apiVersion
}

// ListResources lists member names of one resource type, sorted and unique.
func (o *Org) ListResources(ctx context.Context, resourceType string) ([]string, error) {
	prefix := o.prefix(resourceType) + "/"

	seen := make(map[string]struct{})
	for obj := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s on %s: %w", resourceType, o.alias, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		name = strings.TrimSuffix(name, path.Ext(name))
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

// ReadResource retrieves one resource payload.
func (o *Org) ReadResource(ctx context.Context, resourceType, name string) ([]byte, error) {
	key := o.prefix(resourceType) + "/" + name + ".xml"
	rc, err := o.client.GetObject(ctx, o.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s from %s: %w", resourceType, name, o.alias, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s from %s: %w", resourceType, name, o.alias, err)
	}
	return data, nil
}

func (o *Org) prefix(resourceType string) string {
	return "orgs/" + o.alias + "/" + resourceType
}

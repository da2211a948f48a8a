package profile

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"permsync/core/source"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, sources ...source.Source) (*fiber.App, *source.Local) {
	t.Helper()
	svc, local := setupService(t, sources...)
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app, local
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestHandleRetrieve(t *testing.T) {
	src := &fakeSrc{
		alias:    "dev",
		members:  map[string][]string{"profiles": {"Admin"}},
		payloads: map[string][]byte{"profiles/Admin": []byte("<Profile><custom>true</custom></Profile>")},
	}
	app, _ := setupTestApp(t, src)

	resp := postJSON(t, app, "/sync/retrieve", retrieveRequest{
		Source:        "dev",
		ResourceTypes: []string{"profiles"},
	})
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "dev", body["source"])
	assert.NotEmpty(t, body["operation_id"])
}

func TestHandleRetrieveUnknownSource(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSrc{alias: "dev"})

	resp := postJSON(t, app, "/sync/retrieve", retrieveRequest{
		Source:        "prod",
		ResourceTypes: []string{"profiles"},
	})
	assert.Equal(t, 400, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "unknown source")
	assert.NotEmpty(t, body["remediation"])
}

func TestHandleRetrieveInvalidBody(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSrc{alias: "dev"})

	req := httptest.NewRequest("POST", "/sync/retrieve", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleCompare(t *testing.T) {
	payload := []byte("<Profile><custom>true</custom></Profile>")
	dev := &fakeSrc{alias: "dev", payloads: map[string][]byte{"profiles/Admin": payload}}
	uat := &fakeSrc{alias: "uat", payloads: map[string][]byte{"profiles/Admin": payload}}
	app, _ := setupTestApp(t, dev, uat)

	resp := postJSON(t, app, "/sync/compare", compareRequest{
		ResourceType: "profiles",
		Names:        []string{"Admin"},
	})
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Len(t, body["full"], 1)
}

func TestHandleMerge(t *testing.T) {
	src := &fakeSrc{
		alias:    "dev",
		payloads: map[string][]byte{"profiles/Admin": []byte("<Profile><custom>true</custom></Profile>")},
	}
	app, local := setupTestApp(t, src)
	require.NoError(t, local.Write("profiles", "Admin", []byte("<Profile><custom>false</custom></Profile>")))

	resp := postJSON(t, app, "/sync/merge", mergeRequest{
		ResourceType: "profiles",
		Name:         "Admin",
		Source:       "dev",
		Strategy:     "remote-wins",
	})
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["written"])
}

func TestHandleCacheStats(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSrc{alias: "dev"})

	resp, err := app.Test(httptest.NewRequest("GET", "/sync/cache", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body, "hits")
	assert.Contains(t, body, "misses")
}

func TestHandleCachePurge(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSrc{alias: "dev"})

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/cache/purge", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body, "purged")
}

func TestHandleHistory(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSrc{alias: "dev"})

	resp, err := app.Test(httptest.NewRequest("GET", "/sync/history?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

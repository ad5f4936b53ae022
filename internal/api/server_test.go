package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/tmplinspect/internal/config"
	"github.com/dgallion1/tmplinspect/internal/snapshot"
	"github.com/dgallion1/tmplinspect/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotatedPage = `<!DOCTYPE html>
<html>
<head><title>Orders</title></head>
<body>
<!-- BEGIN app/views/layouts/application.html.erb -->
<main>
  <!-- BEGIN app/views/orders/index.html.erb -->
  <section id="orders">
    <!-- BEGIN app/views/orders/_order.html.erb -->
    <article id="order-1"><h2 id="heading">Order #1</h2></article>
    <!-- END app/views/orders/_order.html.erb -->
  </section>
  <!-- END app/views/orders/index.html.erb -->
</main>
<!-- END app/views/layouts/application.html.erb -->
<footer id="footer">unannotated</footer>
</body>
</html>`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(snapshot.NewStore(time.Hour, 10), stats.NewRecorder(time.Hour), log, cfg)
}

func do(t *testing.T, srv http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func createSnapshot(t *testing.T, srv http.Handler) string {
	t.Helper()
	w := do(t, srv, "POST", "/api/snapshots", "text/html", annotatedPage)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, _ := decode(t, w)["snapshot_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t, nil), "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestCreateSnapshot_RawHTML(t *testing.T) {
	srv := newTestServer(t, nil)
	w := do(t, srv, "POST", "/api/snapshots", "text/html", annotatedPage)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Orders", body["title"])
	assert.EqualValues(t, 3, body["regions"])
	assert.Len(t, body["snapshot_id"], 26)
}

func TestCreateSnapshot_JSONBody(t *testing.T) {
	srv := newTestServer(t, nil)
	payload, err := json.Marshal(map[string]string{"html": annotatedPage, "title": "custom"})
	require.NoError(t, err)

	w := do(t, srv, "POST", "/api/snapshots", "application/json; charset=utf-8", string(payload))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "custom", decode(t, w)["title"])
}

func TestCreateSnapshot_Rejects(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 32 })

	w := do(t, srv, "POST", "/api/snapshots", "text/html", "   ")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "POST", "/api/snapshots", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "POST", "/api/snapshots", "text/html", strings.Repeat("<p>x</p>", 10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestResolve_FoundWithChain(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)

	w := do(t, srv, "POST", "/api/snapshots/"+id+"/resolve", "application/json", `{"id":"heading"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Found   bool   `json:"found"`
		Path    string `json:"path"`
		Element struct {
			ID string `json:"id"`
		} `json:"element"`
		Breadcrumb struct {
			Parents []string `json:"parents"`
			Current string   `json:"current"`
		} `json:"breadcrumb"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Found)
	assert.Equal(t, "app/views/orders/_order.html.erb", resp.Path)
	assert.Equal(t, "order-1", resp.Element.ID)
	assert.Equal(t, []string{
		"app/views/layouts/application.html.erb",
		"app/views/orders/index.html.erb",
	}, resp.Breadcrumb.Parents)
	assert.Equal(t, resp.Path, resp.Breadcrumb.Current)
}

func TestResolve_ByXPath(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)

	w := do(t, srv, "POST", "/api/snapshots/"+id+"/resolve", "application/json", `{"xpath":"//section[@id='orders']"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "app/views/orders/index.html.erb", decode(t, w)["path"])
}

func TestResolve_NotFoundIsNotAnError(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)

	w := do(t, srv, "POST", "/api/snapshots/"+id+"/resolve", "application/json", `{"id":"footer"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["found"])
	assert.NotContains(t, body, "path")
}

func TestResolve_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)
	url := "/api/snapshots/" + id + "/resolve"

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"no selector", url, `{}`, http.StatusBadRequest},
		{"both selectors", url, `{"id":"a","xpath":"//a"}`, http.StatusBadRequest},
		{"bad json", url, `{`, http.StatusBadRequest},
		{"bad xpath", url, `{"xpath":"//div["}`, http.StatusBadRequest},
		{"text node", url, `{"xpath":"//h2[@id='heading']/text()"}`, http.StatusBadRequest},
		{"attribute", url, `{"xpath":"//h2/@id"}`, http.StatusBadRequest},
		{"no match", url, `{"id":"missing"}`, http.StatusNotFound},
		{"unknown snapshot", "/api/snapshots/nope/resolve", `{"id":"heading"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", tt.path, "application/json", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)

	w := do(t, srv, "GET", "/api/snapshots/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["snapshot_id"])

	w = do(t, srv, "DELETE", "/api/snapshots/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, "GET", "/api/snapshots/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, "DELETE", "/api/snapshots/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegions_Formats(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)
	base := "/api/snapshots/" + id + "/regions"

	w := do(t, srv, "GET", base, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, []any{
		"app/views/layouts/application.html.erb",
		"app/views/orders/index.html.erb",
		"app/views/orders/_order.html.erb",
	}, body["paths"])

	w = do(t, srv, "GET", base+"?format=markdown", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# Orders")
	assert.Contains(t, w.Body.String(), "    - `app/views/orders/_order.html.erb`")

	w = do(t, srv, "GET", base+"?format=html", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<h1>Orders</h1>")

	w = do(t, srv, "GET", base+"?format=pdf", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCombo(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(t, srv, "POST", "/api/combo", "application/json",
		`{"event":{"key":"v","meta_key":true,"shift_key":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "meta-shift-v", body["combo"])
	assert.Equal(t, true, body["match"])
	assert.Equal(t, true, body["enabled"])

	w = do(t, srv, "POST", "/api/combo", "application/json",
		`{"combo":"command-k","event":{"key":"k","shift_key":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["match"])
	assert.NotContains(t, body, "enabled")
}

func TestToggle_ConfiguredCombo(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.ComboKey = "alt-i" })

	w := do(t, srv, "GET", "/api/toggle", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"combo": "alt-i", "enabled": false, "keep_enabled": false}, decode(t, w))

	// The default combo is not the configured one.
	w = do(t, srv, "POST", "/api/combo", "application/json",
		`{"event":{"key":"v","meta_key":true,"shift_key":true}}`)
	body := decode(t, w)
	assert.Equal(t, false, body["match"])
	assert.Equal(t, false, body["enabled"])

	w = do(t, srv, "POST", "/api/combo", "application/json", `{"event":{"key":"i","alt_key":true}}`)
	body = decode(t, w)
	assert.Equal(t, true, body["match"])
	assert.Equal(t, true, body["enabled"])

	w = do(t, srv, "POST", "/api/toggle/opened", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["enabled"])

	w = do(t, srv, "GET", "/api/toggle", "", "")
	assert.Equal(t, false, decode(t, w)["enabled"])
}

func TestToggle_EscapeAndKeepEnabled(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.KeepEnabled = true })
	press := `{"event":{"key":"v","meta_key":true,"shift_key":true}}`

	w := do(t, srv, "POST", "/api/combo", "application/json", press)
	assert.Equal(t, true, decode(t, w)["enabled"])

	w = do(t, srv, "POST", "/api/toggle/opened", "", "")
	assert.Equal(t, true, decode(t, w)["enabled"])

	w = do(t, srv, "POST", "/api/combo", "application/json", `{"event":{"key":"Escape"}}`)
	body := decode(t, w)
	assert.Equal(t, false, body["match"])
	assert.Equal(t, false, body["enabled"])

	// Escape never enables.
	w = do(t, srv, "POST", "/api/combo", "application/json", `{"event":{"key":"Escape"}}`)
	assert.Equal(t, false, decode(t, w)["enabled"])
}

func TestResolveStats_CountsLookups(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSnapshot(t, srv)
	do(t, srv, "POST", "/api/snapshots/"+id+"/resolve", "application/json", `{"id":"heading"}`)
	do(t, srv, "POST", "/api/snapshots/"+id+"/resolve", "application/json", `{"id":"footer"}`)

	w := do(t, srv, "GET", "/api/stats/resolve", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Snapshots int            `json:"snapshots"`
		Stats     stats.Snapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Snapshots)
	assert.Equal(t, 2, resp.Stats.Count)
	assert.Equal(t, 1, resp.Stats.Found)
	assert.Equal(t, 1, resp.Stats.NotFound)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.APIKey = "secret" })

	w := do(t, srv, "GET", "/api/stats/resolve", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/stats/resolve", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("GET", "/api/stats/resolve", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public.
	w = do(t, srv, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.AllowedOrigins = "http://localhost:3000" })

	req := httptest.NewRequest("OPTIONS", "/api/combo", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/rooted/internal/engine"
	"github.com/lazypower/rooted/internal/index"
	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testServer(t *testing.T, client llm.Client) (*Server, *engine.Engine) {
	t.Helper()
	db := testDB(t)
	eng := engine.New(db, client, index.NewMemory(), engine.NewHashEmbedder(128), engine.DefaultSettings(), nil)
	t.Cleanup(eng.Stop)
	return New(db, eng, "test-version", Options{DefaultUser: "local"}), eng
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := do(t, srv, "GET", "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.Equal(t, true, body["db"])
	assert.Equal(t, true, body["engine"])
	assert.NotZero(t, body["schema"])
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestNoEngine(t *testing.T) {
	srv := New(testDB(t), nil, "v", Options{})

	routes := []struct {
		method string
		path   string
	}{
		{"POST", "/api/chat"},
		{"GET", "/api/memory"},
		{"GET", "/api/memories"},
		{"POST", "/api/memories"},
		{"DELETE", "/api/memories/abc"},
		{"GET", "/api/tree"},
		{"GET", "/api/profile"},
		{"POST", "/api/decay"},
		{"GET", "/api/history"},
	}
	for _, rt := range routes {
		w := do(t, srv, rt.method, rt.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "%s %s", rt.method, rt.path)

		var body map[string]string
		decode(t, w, &body)
		assert.NotEmpty(t, body["error"])
	}

	w := do(t, srv, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := testServer(t, nil)
	w := do(t, srv, "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

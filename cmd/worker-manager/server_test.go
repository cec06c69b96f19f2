// cmd/worker-manager/server_test.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-estimate-workers/internal/common/logger"
)

type fakeInvalidator struct {
	n   int
	err error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) (int, error) { return f.n, f.err }

func testRouter(t *testing.T, checks map[string]checker, inv invalidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(routerDeps{
		checks:    checks,
		catalog:   inv,
		logger:    logger.NewTestLogger(t),
		startedAt: time.Now(),
	})
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := serve(testRouter(t, nil, nil), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestReady(t *testing.T) {
	ok := checkFunc(func(ctx context.Context) error { return nil })
	down := checkFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		w := serve(testRouter(t, map[string]checker{"postgres": ok, "redis": ok}, nil), http.MethodGet, "/ready")
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
	})

	t.Run("one dependency down", func(t *testing.T) {
		w := serve(testRouter(t, map[string]checker{"postgres": ok, "zeebe": down}, nil), http.MethodGet, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"not_ready"`)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	w := serve(testRouter(t, nil, nil), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCatalogInvalidate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		w := serve(testRouter(t, nil, &fakeInvalidator{n: 12}), http.MethodPost, "/admin/catalog/invalidate")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"invalidated":12}`, w.Body.String())
	})

	t.Run("cache error", func(t *testing.T) {
		w := serve(testRouter(t, nil, &fakeInvalidator{err: errors.New("redis down")}), http.MethodPost, "/admin/catalog/invalidate")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("not registered without a catalog", func(t *testing.T) {
		w := serve(testRouter(t, nil, nil), http.MethodPost, "/admin/catalog/invalidate")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

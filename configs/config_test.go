package config

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUniqueInstance(t *testing.T) {
	a := CreateUniqueInstance("mac")
	b := CreateUniqueInstance("mac")
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	out := log.StandardLogger().Out
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(out) })

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(CustomLoggerMiddleware())
	r.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "GET /teapot")
	assert.Contains(t, buf.String(), "418")
	assert.Contains(t, buf.String(), "request_id=")
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	c := CORS([]string{"https://app.example"})
	h := c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	rid := w.Header().Get(requestIDHeader)
	_, err := uuid.Parse(rid)
	assert.NoError(t, err)

	w = httptest.NewRecorder()
	req.Header.Set(requestIDHeader, "req-abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-abc", w.Header().Get(requestIDHeader))
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("a", 200))
	router.ServeHTTP(w, req)

	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestRequestLoggerWritesRequestLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	router := NewRouter(nil, fakeHealth{}, Options{Logger: zerolog.New(&buf)})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-log")
	router.ServeHTTP(w, req)

	line := buf.String()
	assert.Contains(t, line, `"request_id":"req-log"`)
	assert.Contains(t, line, `"path":"/health"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"message":"request"`)
}

func TestPanicStillWritesRequestLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	router := NewRouter(stubPredictor{panic: true}, fakeHealth{}, Options{Logger: zerolog.New(&buf)})

	w := post(router, "application/json", body(0, ""))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), msgServerError)

	out := buf.String()
	assert.Contains(t, out, `"message":"panic recovered"`)
	assert.Contains(t, out, `"panic":"model exploded"`)
	assert.Contains(t, out, `"message":"request"`)
	assert.Contains(t, out, `"status":500`)
}

func TestClientErrorsLogAtDebug(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	router := NewRouter(nil, fakeHealth{}, Options{Logger: zerolog.New(&buf).Level(zerolog.InfoLevel)})

	w := post(router, "text/plain", "{}")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, buf.String(), "rejected request")
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfigExplicitOrigins(t *testing.T) {
	cfg := corsConfig([]string{"https://screening.example.org"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://screening.example.org"}, cfg.AllowOrigins)

	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
}

func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader("12345"))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader("01234567890"))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestIsJSON(t *testing.T) {
	assert.True(t, isJSON("application/json"))
	assert.True(t, isJSON("application/problem+json; charset=utf-8"))
	assert.False(t, isJSON("text/json"))
	assert.False(t, isJSON(""))
}

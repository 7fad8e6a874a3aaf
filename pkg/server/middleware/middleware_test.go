package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestID(t *testing.T) {
	valid := uuid.New().String()

	tests := []struct {
		name     string
		header   string
		expectID func(t *testing.T, got string)
	}{
		{
			name:   "keeps valid client id",
			header: valid,
			expectID: func(t *testing.T, got string) {
				assert.Equal(t, valid, got)
			},
		},
		{
			name:   "replaces invalid id",
			header: "not-a-uuid",
			expectID: func(t *testing.T, got string) {
				assert.NotEqual(t, "not-a-uuid", got)
				_, err := uuid.Parse(got)
				assert.NoError(t, err)
			},
		},
		{
			name: "generates missing id",
			expectID: func(t *testing.T, got string) {
				_, err := uuid.Parse(got)
				assert.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			tt.expectID(t, seen)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var ctxLogger *zerolog.Logger
	handler := RequestID(Logger(&logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/compare", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, ctxLogger)
	assert.NotEqual(t, zerolog.Disabled, ctxLogger.GetLevel())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "/api/v1/compare", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Window: time.Minute, Max: 2})(http.HandlerFunc(okHandler))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001").Code)

	rejected := send("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.NotEmpty(t, rejected.Header().Get("Retry-After"))

	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(rejected.Body).Decode(&body))
	assert.Equal(t, api.StatusError, body.Status)

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(RateLimitConfig{})(http.HandlerFunc(okHandler))
	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientLimiter_RefillsAndSweeps(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(RateLimitConfig{Window: time.Minute, Max: 1})
	l.now = func() time.Time { return now }

	ok, _ := l.reserve("a")
	assert.True(t, ok)
	ok, wait := l.reserve("a")
	assert.False(t, ok)
	assert.InDelta(t, time.Minute.Seconds(), wait.Seconds(), 1)

	now = now.Add(time.Minute)
	ok, _ = l.reserve("b")
	assert.True(t, ok)
	assert.NotContains(t, l.visitors, "a")

	ok, _ = l.reserve("a")
	assert.True(t, ok)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/pricing/{provider}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pricing/aws", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/pricing/{provider}", "200"))
	assert.GreaterOrEqual(t, count, 1.0)
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/instances"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
	instances.Store
}

func (m *mockCache) Enabled() bool { return true }

func (m *mockCache) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockRefresh struct {
	mock.Mock
}

func (m *mockRefresh) List(ctx context.Context) ([]*store.RefreshState, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*store.RefreshState), args.Error(1)
}

func (m *mockRefresh) MarkSucceeded(ctx context.Context, provider string, at time.Time, records int) error {
	return m.Called(ctx, provider, at, records).Error(0)
}

func (m *mockRefresh) MarkFailed(ctx context.Context, provider string, at time.Time, cause error) error {
	return m.Called(ctx, provider, at, cause).Error(0)
}

func TestHealth(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refreshed := now.Add(-time.Hour)
	cause := "upstream returned 503"

	tests := []struct {
		name        string
		handler     func() *Handler
		expectCache api.CacheHealth
	}{
		{
			name:        "no cache",
			handler:     func() *Handler { return NewHandler(nil, nil) },
			expectCache: api.CacheHealth{Enabled: false},
		},
		{
			name: "cache with refresh state",
			handler: func() *Handler {
				c := new(mockCache)
				c.On("Count", mock.Anything).Return(int64(42), nil)
				rs := new(mockRefresh)
				rs.On("List", mock.Anything).Return([]*store.RefreshState{
					{Provider: "aws", LastAttemptAt: refreshed, LastRefreshedAt: &refreshed, RecordsCount: 42},
					{Provider: "gcp", LastAttemptAt: refreshed, LastError: &cause},
				}, nil)
				return NewHandler(c, rs)
			},
			expectCache: api.CacheHealth{
				Enabled: true,
				Records: 42,
				Refresh: []api.RefreshState{
					{Provider: "aws", LastAttemptAt: refreshed, LastRefreshedAt: &refreshed, Records: 42},
					{Provider: "gcp", LastAttemptAt: refreshed, LastError: &cause},
				},
			},
		},
		{
			name: "cache errors are not fatal",
			handler: func() *Handler {
				c := new(mockCache)
				c.On("Count", mock.Anything).Return(int64(0), errors.New("db closed"))
				rs := new(mockRefresh)
				rs.On("List", mock.Anything).Return([]*store.RefreshState(nil), errors.New("db closed"))
				return NewHandler(c, rs)
			},
			expectCache: api.CacheHealth{Enabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.handler()
			h.now = func() time.Time { return now }

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			var body api.HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "ok", body.Status)
			assert.True(t, now.Equal(body.Timestamp))
			assert.Equal(t, tt.expectCache.Enabled, body.Cache.Enabled)
			assert.Equal(t, tt.expectCache.Records, body.Cache.Records)
			require.Len(t, body.Cache.Refresh, len(tt.expectCache.Refresh))
			for i, want := range tt.expectCache.Refresh {
				got := body.Cache.Refresh[i]
				assert.Equal(t, want.Provider, got.Provider)
				assert.Equal(t, want.Records, got.Records)
				assert.Equal(t, want.LastError, got.LastError)
				assert.Equal(t, want.LastRefreshedAt != nil, got.LastRefreshedAt != nil)
			}
		})
	}
}

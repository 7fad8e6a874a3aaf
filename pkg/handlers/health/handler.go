package health

import (
	"net/http"
	"time"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/handlers/response"
	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/instances"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/refresh"
	"github.com/rs/zerolog"
)

type Handler struct {
	cache   instances.Store
	refresh refresh.Store
	now     func() time.Time
}

// NewHandler reports liveness and cache state. refreshes may be nil when no cache is configured.
func NewHandler(cache instances.Store, refreshes refresh.Store) *Handler {
	if cache == nil {
		cache = instances.Disabled()
	}
	return &Handler{
		cache:   cache,
		refresh: refreshes,
		now:     time.Now,
	}
}

// Health always answers 200 while the process serves requests; cache read failures are
// logged and reported as an empty cache.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	cache := api.CacheHealth{Enabled: h.cache.Enabled()}
	if cache.Enabled {
		count, err := h.cache.Count(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to count cached instances")
		}
		cache.Records = count
	}
	if h.refresh != nil {
		states, err := h.refresh.List(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read refresh state")
		}
		cache.Refresh = adapters.MapStoreRefreshStatesToApi(states)
	}

	response.JSON(w, r, http.StatusOK, api.HealthResponse{
		Status:    "ok",
		Message:   "cloudprice API is running",
		Timestamp: h.now().UTC(),
		Cache:     cache,
	})
}

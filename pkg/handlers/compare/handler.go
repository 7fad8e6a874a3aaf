package compare

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/handlers/response"
	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/compare"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes = 1 << 20

	DataSourceHeader = "X-Data-Source"
)

type Handler struct {
	svc        compare.Service
	production bool
}

// NewHandler builds the pricing handlers. In production, 5xx responses carry no error detail.
func NewHandler(svc compare.Service, production bool) *Handler {
	return &Handler{
		svc:        svc,
		production: production,
	}
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	req, err := parseCompareRequest(r.URL.Query())
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
		return
	}

	result, err := h.svc.Compare(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.CompareResponse{
		Status: api.StatusSuccess,
		Data:   adapters.MapDomainInstancesToApi(result.Data),
		Pagination: api.Pagination{
			Total:    result.Total,
			Page:     result.Page,
			Pages:    result.TotalPages,
			PageSize: result.PageSize,
		},
		Currency: result.Currency,
		Sources:  h.sources(result.Sources),
	})
}

// Pricing serves /pricing/{provider}: an instance id resolves to that single offering,
// anything else is treated as a provider name.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	if _, err := uuid.Parse(chi.URLParam(r, "provider")); err == nil {
		h.Instance(w, r)
		return
	}
	h.ProviderPricing(w, r)
}

func (h *Handler) Instance(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.Instance(r.Context(), chi.URLParam(r, "provider"), r.URL.Query().Get("currency"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[api.Instance]{
		Status: api.StatusSuccess,
		Data:   adapters.MapDomainInstanceToApi(*found),
	})
}

func (h *Handler) ProviderPricing(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	values := r.URL.Query()
	limit, err := parseInt(values, "limit")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
		return
	}

	q := fetcher.Query{
		Region:      strings.TrimSpace(values.Get("region")),
		PaymentType: strings.TrimSpace(values.Get("paymentType")),
	}
	listing, err := h.svc.ProviderInstances(r.Context(), p, q, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set(DataSourceHeader, string(listing.Source))
	response.JSON(w, r, http.StatusOK, api.DataResponse[[]api.Instance]{
		Status: api.StatusSuccess,
		Count:  len(listing.Instances),
		Data:   adapters.MapDomainInstancesToApi(listing.Instances),
	})
}

func (h *Handler) BestPrice(w http.ResponseWriter, r *http.Request) {
	var body api.BestPriceRequest
	if !h.decode(w, r, &body) {
		return
	}
	providers := make([]domain.Provider, 0, len(body.Providers))
	for _, name := range body.Providers {
		p, err := domain.ParseProvider(name)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
			return
		}
		providers = append(providers, p)
	}

	found, err := h.svc.BestPrice(r.Context(), compare.BestPriceRequest{
		VCPUs:     body.VCPUs,
		Memory:    body.Memory,
		GPU:       body.GPU,
		Providers: providers,
		Currency:  body.Currency,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[[]api.Instance]{
		Status: api.StatusSuccess,
		Count:  len(found),
		Data:   adapters.MapDomainInstancesToApi(found),
	})
}

func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	var body api.SimilarRequest
	if !h.decode(w, r, &body) {
		return
	}
	providers, err := parseProviders(strings.Join(body.Providers, ","))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
		return
	}

	found, err := h.svc.Similar(r.Context(), compare.SimilarRequest{
		VCPUs:     body.VCPUs,
		Memory:    body.Memory,
		Region:    strings.TrimSpace(body.Region),
		Providers: providers,
		Currency:  body.Currency,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[[]api.Instance]{
		Status: api.StatusSuccess,
		Count:  len(found),
		Data:   adapters.MapDomainInstancesToApi(found),
	})
}

func (h *Handler) SideBySide(w http.ResponseWriter, r *http.Request) {
	var body api.SideBySideRequest
	if !h.decode(w, r, &body) {
		return
	}

	found, err := h.svc.SideBySide(r.Context(), body.InstanceIDs, body.Currency)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[[]api.Instance]{
		Status: api.StatusSuccess,
		Count:  len(found),
		Data:   adapters.MapDomainInstancesToApi(found),
	})
}

func (h *Handler) Savings(w http.ResponseWriter, r *http.Request) {
	var body api.SavingsRequest
	if !h.decode(w, r, &body) {
		return
	}

	s, err := h.svc.Savings(r.Context(), compare.SavingsRequest{
		InstanceID: body.InstanceID,
		UsageHours: body.UsageHours,
		Currency:   body.Currency,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[api.Savings]{
		Status: api.StatusSuccess,
		Data: api.Savings{
			Instance:       adapters.MapDomainInstanceToApi(s.Instance),
			UsageHours:     s.UsageHours,
			OnDemandCost:   s.OnDemandCost,
			SpotCost:       s.SpotCost,
			Savings:        s.Savings,
			SavingsPercent: s.SavingsPercent,
			SpotEstimated:  s.Instance.SpotEstimated,
			Currency:       s.Currency,
		},
	})
}

func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	regions, err := h.svc.Regions(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, api.DataResponse[[]string]{
		Status: api.StatusSuccess,
		Count:  len(regions),
		Data:   regions,
	})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	found, err := h.svc.Categories(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = string(c)
	}
	response.JSON(w, r, http.StatusOK, api.DataResponse[[]string]{
		Status: api.StatusSuccess,
		Count:  len(names),
		Data:   names,
	})
}

func (h *Handler) Instances(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	values := r.URL.Query()
	category, err := parseCategory(values.Get("category"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
		return
	}

	found, err := h.svc.Catalog(r.Context(), compare.CatalogRequest{
		Provider: p,
		Region:   strings.TrimSpace(values.Get("region")),
		Category: category,
		Currency: strings.TrimSpace(values.Get("currency")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[[]api.Instance]{
		Status: api.StatusSuccess,
		Count:  len(found),
		Data:   adapters.MapDomainInstancesToApi(found),
	})
}

func (h *Handler) PricingHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	values := r.URL.Query()
	limit, err := parseInt(values, "limit")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
		return
	}

	points, _, err := h.svc.PricingHistory(r.Context(), compare.HistoryRequest{
		Provider:     p,
		InstanceType: strings.TrimSpace(values.Get("instanceType")),
		Region:       strings.TrimSpace(values.Get("region")),
		Limit:        limit,
		Currency:     strings.TrimSpace(values.Get("currency")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, api.DataResponse[[]api.PricePoint]{
		Status: api.StatusSuccess,
		Count:  len(points),
		Data:   adapters.MapDomainPricePointsToApi(points),
	})
}

func (h *Handler) provider(w http.ResponseWriter, r *http.Request) (domain.Provider, bool) {
	p, err := domain.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", compare.ErrInvalidRequest, err))
		return "", false
	}
	return p, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.fail(w, r, fmt.Errorf("%w: malformed request body: %w", compare.ErrInvalidRequest, err))
		return false
	}
	return true
}

// fail maps service errors onto status codes. Client errors echo their message; anything
// else is a generic 500 with the cause attached outside production.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, compare.ErrInvalidRequest):
		logger.Debug().Err(err).Msg("invalid request")
		response.Error(w, r, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, compare.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, err.Error(), "")
	default:
		logger.Error().Err(err).Msg("request failed")
		detail := ""
		if !h.production {
			detail = err.Error()
		}
		response.Error(w, r, http.StatusInternalServerError, "Internal server error", detail)
	}
}

func (h *Handler) sources(statuses []compare.SourceStatus) []api.SourceStatus {
	out := make([]api.SourceStatus, 0, len(statuses))
	for _, s := range statuses {
		status := api.SourceStatus{
			Provider: string(s.Provider),
			OK:       s.OK(),
			Records:  s.Records,
		}
		switch {
		case s.OK():
		case errors.Is(s.Err, fetcher.ErrNotConfigured):
			status.Reason = "not configured"
		case h.production:
			status.Reason = "upstream unavailable"
		default:
			status.Reason = s.Err.Error()
		}
		out = append(out, status)
	}
	return out
}

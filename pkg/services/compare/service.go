// Package compare runs the price comparison pipeline across providers.
package compare

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/aggregator"
	"github.com/de-tools/cloudprice/pkg/services/currency"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/normalizer"
	"github.com/de-tools/cloudprice/pkg/services/query"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/history"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/instances"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
)

type Service interface {
	Compare(ctx context.Context, req Request) (*Result, error)
	ProviderInstances(ctx context.Context, p domain.Provider, q fetcher.Query, limit int) (*Listing, error)
	BestPrice(ctx context.Context, req BestPriceRequest) ([]domain.Instance, error)
	SideBySide(ctx context.Context, ids []string, currencyCode string) ([]domain.Instance, error)
	Savings(ctx context.Context, req SavingsRequest) (*Savings, error)
	Regions(ctx context.Context, p domain.Provider) ([]string, error)
	Categories(ctx context.Context, p domain.Provider) ([]domain.Category, error)
	Instance(ctx context.Context, id, currencyCode string) (*domain.Instance, error)
	Similar(ctx context.Context, req SimilarRequest) ([]domain.Instance, error)
	Catalog(ctx context.Context, req CatalogRequest) ([]domain.Instance, error)
	PricingHistory(ctx context.Context, req HistoryRequest) ([]domain.PricePoint, string, error)
	Collect(ctx context.Context, providers []domain.Provider, q fetcher.Query) ([]domain.Instance, []SourceStatus)
}

type Options struct {
	Fetchers   fetcher.Registry
	Cache      instances.Store
	History    history.Store
	Normalizer *normalizer.Normalizer
	Aggregator *aggregator.Aggregator
	Rates      currency.Rates
	PageSize   int
}

type service struct {
	fetchers   fetcher.Registry
	cache      instances.Store
	history    history.Store
	normalizer *normalizer.Normalizer
	aggregator *aggregator.Aggregator
	rates      currency.Rates
	pageSize   int
}

func NewService(opts Options) (Service, error) {
	if opts.Fetchers == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	if opts.Cache == nil {
		opts.Cache = instances.Disabled()
	}
	if opts.History == nil {
		opts.History = history.Disabled()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalizer.New()
	}
	if opts.Aggregator == nil {
		opts.Aggregator = aggregator.New(nil, nil)
	}
	if len(opts.Rates.Codes()) == 0 {
		opts.Rates = currency.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = query.DefaultPageSize
	}

	return &service{
		fetchers:   opts.Fetchers,
		cache:      opts.Cache,
		history:    opts.History,
		normalizer: opts.Normalizer,
		aggregator: opts.Aggregator,
		rates:      opts.Rates,
		pageSize:   opts.PageSize,
	}, nil
}

type Request struct {
	Providers []domain.Provider
	Query     fetcher.Query
	Filter    query.Filter
	SortBy    query.SortKey
	Order     query.Order
	Category  domain.SortCategory
	Currency  string
	Page      int
	PageSize  int
}

type SourceStatus struct {
	Provider domain.Provider
	Records  int
	Err      error
}

func (s SourceStatus) OK() bool {
	return s.Err == nil
}

type Result struct {
	Data       []domain.Instance
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	Currency   string
	Sources    []SourceStatus
}

// Compare fetches every requested provider and runs the records through
// normalize, aggregate, filter, sort, convert and paginate. No data is a normal empty result.
func (s *service) Compare(ctx context.Context, req Request) (*Result, error) {
	providers := req.Providers
	if len(providers) == 0 {
		providers = domain.AllProviders()
	}
	size := req.PageSize
	if size <= 0 {
		size = s.pageSize
	}

	all, sources := s.Collect(ctx, providers, req.Query)

	view := s.aggregator.Aggregate(req.Category, all)
	view = req.Filter.Apply(view)
	view = query.Sort(view, req.SortBy, req.Order)
	view, code := s.rates.Apply(view, req.Currency)
	page := query.Paginate(view, req.Page, size)

	return &Result{
		Data:       page.Data,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Currency:   code,
		Sources:    sources,
	}, nil
}

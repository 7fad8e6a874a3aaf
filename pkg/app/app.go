// Package app wires the configured fetchers, cache and services for both binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/aggregator"
	"github.com/de-tools/cloudprice/pkg/services/compare"
	"github.com/de-tools/cloudprice/pkg/services/config"
	"github.com/de-tools/cloudprice/pkg/services/currency"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/fetcher/awssdk"
	"github.com/de-tools/cloudprice/pkg/services/normalizer"
	"github.com/de-tools/cloudprice/pkg/services/refresh"
	"github.com/de-tools/cloudprice/pkg/store/duckdb"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/history"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/instances"
	refreshstore "github.com/de-tools/cloudprice/pkg/store/duckdb/refresh"
	"github.com/rs/zerolog"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Fetchers fetcher.Registry
	Cache    instances.Store
	History  history.Store
	Refresh  refreshstore.Store
	Compare  compare.Service
	// Runner is nil when no cache is configured.
	Runner *refresh.Runner
	// AWS is the SDK configuration, also used by the export command.
	AWS aws.Config

	db *sql.DB
}

// New builds the application from cfg. Providers without a data source stay unregistered and
// report "not configured" instead of failing startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := zerolog.Ctx(ctx)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	reg, err := newRegistry(ctx, cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	rates := currency.Default()
	if cfg.CurrencyRatesFile != "" {
		if rates, err = currency.LoadRates(cfg.CurrencyRatesFile); err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.CurrencyRatesFile).Strs("currencies", rates.Codes()).Msg("currency rates loaded")
	}

	a := &App{
		Config:   cfg,
		Logger:   *logger,
		Fetchers: reg,
		Cache:    instances.Disabled(),
		History:  history.Disabled(),
		AWS:      awsCfg,
	}

	norm := normalizer.New()
	if cfg.CacheDSN != "" {
		if err := a.openCache(cfg.CacheDSN, reg, norm); err != nil {
			return nil, err
		}
		logger.Info().Str("dsn", cfg.CacheDSN).Msg("instance cache enabled")
	}

	a.Compare, err = compare.NewService(compare.Options{
		Fetchers:   reg,
		Cache:      a.Cache,
		History:    a.History,
		Normalizer: norm,
		Aggregator: aggregator.New(aggregator.RatioSpotEstimator{Ratio: cfg.SpotRatio}, nil),
		Rates:      rates,
		PageSize:   cfg.PageSize,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create compare service: %w", err)
	}

	return a, nil
}

func (a *App) openCache(dsn string, reg fetcher.Registry, norm *normalizer.Normalizer) error {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: dsn})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	a.db = db

	if a.Cache, err = instances.NewStore(db); err != nil {
		a.Close()
		return fmt.Errorf("failed to create instance store: %w", err)
	}
	if a.History, err = history.NewStore(db); err != nil {
		a.Close()
		return fmt.Errorf("failed to create price history store: %w", err)
	}
	if a.Refresh, err = refreshstore.NewStore(db); err != nil {
		a.Close()
		return fmt.Errorf("failed to create refresh store: %w", err)
	}
	if a.Runner, err = refresh.NewRunner(db, reg, norm, a.Cache, a.Refresh, a.History); err != nil {
		a.Close()
		return fmt.Errorf("failed to create refresh runner: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func newRegistry(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (fetcher.Registry, error) {
	logger := zerolog.Ctx(ctx)
	reg := fetcher.NewRegistry()

	upstream := domain.AllProviders()
	if cfg.AWSSource == config.AWSSourceSDK {
		if err := reg.Register(awssdk.New(awsCfg, cfg.AWSSDKTimeout)); err != nil {
			return nil, err
		}
		upstream = []domain.Provider{domain.ProviderAzure, domain.ProviderGCP}
		logger.Info().Str("region", cfg.AWSRegion).Msg("aws prices from the AWS APIs")
	}

	if cfg.UpstreamBaseURL == "" {
		logger.Warn().Msg("UPSTREAM_BASE_URL is not set, upstream providers are not configured")
		return reg, nil
	}
	if err := fetcher.RegisterUpstream(reg, cfg.FetcherSettings(), upstream...); err != nil {
		return nil, fmt.Errorf("failed to register upstream fetchers: %w", err)
	}
	return reg, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/de-tools/cloudprice/pkg/app"
	"github.com/de-tools/cloudprice/pkg/server"
	"github.com/de-tools/cloudprice/pkg/server/middleware"
	"github.com/de-tools/cloudprice/pkg/services/config"
	"github.com/de-tools/cloudprice/pkg/services/refresh"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the cloudprice API server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Optional config file; environment variables take precedence")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := zerolog.New(os.Stdout).Level(cfg.Level()).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Runner != nil {
		refreshCtrl := refresh.NewController(a.Runner, cfg.RefreshInterval)
		if err := refreshCtrl.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cache refresh: %w", err)
		}
		defer refreshCtrl.Stop()
	}

	providers := a.Fetchers.Providers()
	logger.Info().
		Str("environment", cfg.Environment).
		Interface("providers", providers).
		Strs("cors_origins", cfg.CORSAllowedOrigins).
		Msg("configuration loaded")

	api := server.NewWebAPI(logger, server.Config{
		Addr:        cfg.Addr(),
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		Production: cfg.IsProduction(),
		Dependencies: server.Dependencies{
			Compare: a.Compare,
			Cache:   a.Cache,
			Refresh: a.Refresh,
		},
	})

	return api.Start()
}

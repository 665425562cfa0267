package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolioTracker/internal/config"
	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/logging"
	"portfolioTracker/internal/openai"
	"portfolioTracker/internal/server"
	"portfolioTracker/internal/storage"
	"portfolioTracker/internal/telegram"
)

// configPaths allows multiple -config flags; later files win.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var configFiles configPaths

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()
	if len(configFiles) == 0 {
		configFiles = append(configFiles, "portfolio.toml")
	}

	cfg, err := config.Load(configFiles...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, "config:", issue)
		}
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Logger())

	db, err := storage.OpenSQLite("file:" + cfg.Storage.DBPath + "?_fk=1")
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.DBPath).Msg("db: open failed")
	}
	defer db.Close()
	if err := storage.InitSchema(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("db: schema init failed")
	}
	logger.Info().Str("path", cfg.Storage.DBPath).Msg("db: schema ensured")

	yahoo := finance.NewYahooClient(
		finance.WithHosts(cfg.Provider.Hosts...),
		finance.WithRateLimit(cfg.Provider.RateLimit),
		finance.WithTimeout(cfg.Provider.GetTimeout()),
		finance.WithUserAgent(cfg.Provider.UserAgent),
		finance.WithLogger(logger),
	)
	engine := finance.NewEngine(yahoo, storage.NewSeriesCache(db), finance.EngineOptions{
		Benchmark:     cfg.Analytics.Benchmark,
		ShortRange:    cfg.Analytics.ShortRange,
		LongRanges:    cfg.Analytics.LongRanges,
		MinSamples:    cfg.Analytics.MinSamples,
		Horizons:      cfg.Analytics.Horizons,
		HistogramBins: cfg.Analytics.HistogramBins,
	}, logger)

	store := storage.NewStore(db)
	deps := telegram.Deps{Store: store, Engine: engine, Charts: finance.NewChartCache(finance.DefaultChartTTL)}
	if cfg.OpenAI.APIKey != "" {
		deps.Commentator = openai.NewCommentator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.GetTimeout())
	} else {
		logger.Warn().Msg("openai: no api key, /insight disabled")
	}

	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.WebhookPublicURL, deps, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram: bot init failed")
	}

	mux := server.NewHTTPMux(server.Deps{Webhook: bot.WebhookHandler, Store: store, Engine: engine, Logger: logger})
	srv := server.New(":"+cfg.Server.Port, mux, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http: server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http: shutdown failed")
	}
	if err := bot.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("telegram: in-flight messages cancelled")
	}
	logger.Info().Msg("stopped")
}

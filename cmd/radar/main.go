// Command radar runs the new-listing detection service: it watches the
// configured sources, dedups against the durable ledger, enriches and
// filters candidates, persists accepted ones, and serves the read API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"listing-radar/internal/config"
	"listing-radar/internal/dexscreener"
	"listing-radar/internal/enrich"
	"listing-radar/internal/filter"
	"listing-radar/internal/ledger"
	"listing-radar/internal/normalize"
	"listing-radar/internal/notify"
	"listing-radar/internal/orchestrator"
	"listing-radar/internal/pipeline"
	"listing-radar/internal/server"
	"listing-radar/internal/source"
	"listing-radar/internal/storage"
	"listing-radar/internal/storage/memory"
	"listing-radar/internal/storage/migrations"
	pgstore "listing-radar/internal/storage/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "radar",
		Short:         "Detects new token listings across exchange and DEX sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./radar.{yaml,toml,json})")
	flags := root.PersistentFlags()
	flags.String("feed-url", "", "announcement feed URL")
	flags.Duration("feed-interval", 120*time.Second, "announcement feed poll interval")
	flags.String("feed-keywords", "", "comma-separated listing keywords")
	flags.String("stream-url", "", "exchange websocket URL")
	flags.String("dex-base-url", dexscreener.DefaultBaseURL, "DEX aggregator API root")
	flags.Bool("dex-poll-enabled", true, "poll the aggregator recent-pairs feed")
	flags.Duration("dex-poll-interval", 120*time.Second, "aggregator poll interval")
	flags.Duration("dex-recent-window", 10*time.Minute, "trailing pair-creation window")
	flags.Int("dex-requests-per-minute", 60, "aggregator request budget")
	defaults := filter.DefaultThresholds()
	flags.Float64("min-fdv", defaults.MinFDV, "minimum fully diluted value")
	flags.Float64("min-liquidity", defaults.MinLiquidity, "minimum pooled liquidity")
	flags.Duration("ledger-reclaim-after", 15*time.Minute, "unconfirmed reservation reclaim window")
	flags.String("postgres-dsn", "", "PostgreSQL connection string (empty for in-memory)")
	flags.String("webhook", "", "comma-separated alert webhook URLs")
	flags.String("alerts-file", "", "JSONL alert file path")
	flags.String("server-addr", ":8080", "read API listen address")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	loadConfig := func(cmd *cobra.Command) (config.Config, error) {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return config.Config{}, err
		}
		setupLogging(cfg.Log.Level)
		return cfg, nil
	}

	root.AddCommand(newRunCmd(loadConfig))
	root.AddCommand(newMigrateCmd(loadConfig))
	root.AddCommand(newExportCmd(loadConfig))

	return root
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newRunCmd(loadConfig func(*cobra.Command) (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the detection service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runService(cfg)
		},
	}
}

func runService(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()
	defer close(done)

	// Stores: durable by default, in-memory when no DSN is given.
	var ledgerStore storage.LedgerStore = memory.NewLedgerStore()
	var candidateStore storage.CandidateStore = memory.NewCandidateStore()

	if cfg.Store.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		ledgerStore = pgstore.NewLedgerStore(pool)
		candidateStore = pgstore.NewCandidateStore(pool)
	} else {
		log.Warn().Msg("no postgres-dsn set, ledger is in-memory and lost on restart")
	}

	dexClient := dexscreener.NewClient(dexscreener.Config{
		BaseURL:           cfg.Dex.BaseURL,
		RequestsPerMinute: cfg.Dex.RequestsPerMinute,
	})

	notifier := buildNotifier(cfg.Notify)

	pipe := pipeline.New(pipeline.Options{
		Normalizer: normalize.New(),
		Gate:       ledger.New(ledgerStore, cfg.Ledger.ReclaimAfter),
		Enricher:   enrich.New(dexClient),
		Thresholds: filter.Thresholds{
			MinFDV:       cfg.Filter.MinFDV,
			MinLiquidity: cfg.Filter.MinLiquidity,
		},
		Candidates: candidateStore,
		Notifier:   notifier,
	})

	sources := buildSources(cfg, dexClient)

	// Read API and metrics.
	if cfg.Server.Addr != "" {
		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: server.New(candidateStore).Handler(),
		}
		go func() {
			log.Info().Str("addr", cfg.Server.Addr).Msg("starting http server")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	orch := orchestrator.New(orchestrator.Options{
		Sources:  sources,
		Pipeline: pipe,
	})

	log.Info().Int("sources", len(sources)).Msg("starting detection loop")
	err := orch.Run(ctx)
	if err == context.Canceled {
		err = nil
	}
	return err
}

// buildSources assembles the enabled source adapters.
func buildSources(cfg config.Config, dexClient *dexscreener.Client) []source.Source {
	var sources []source.Source

	if cfg.Feed.URL != "" {
		sources = append(sources, source.NewFeedSource(source.FeedConfig{
			URL:      cfg.Feed.URL,
			Interval: cfg.Feed.Interval,
			Keywords: cfg.Feed.Keywords,
		}))
	}
	if cfg.Stream.URL != "" {
		sources = append(sources, source.NewStreamSource(source.StreamConfig{
			URL:               cfg.Stream.URL,
			ReconnectDelay:    cfg.Stream.ReconnectDelay,
			MaxReconnectDelay: cfg.Stream.MaxReconnectDelay,
		}))
	}
	if cfg.Dex.PollEnabled {
		sources = append(sources, source.NewDexPollSource(dexClient, source.DexPollConfig{
			Interval:     cfg.Dex.PollInterval,
			RecentWindow: cfg.Dex.RecentWindow,
		}))
	}

	return sources
}

// buildNotifier assembles the alert fanout. The structured log channel
// is always on.
func buildNotifier(cfg config.NotifyConfig) notify.Notifier {
	targets := []notify.Notifier{&notify.LogNotifier{}}

	if cfg.AlertsFile != "" {
		targets = append(targets, notify.NewFileNotifier(cfg.AlertsFile))
	}
	for _, endpoint := range cfg.Webhooks {
		targets = append(targets, notify.NewWebhookNotifier(endpoint))
	}

	return notify.NewFanout(targets...)
}

func newMigrateCmd(loadConfig func(*cobra.Command) (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.DSN == "" {
				return fmt.Errorf("postgres-dsn is required for migrate")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			pool, err := pgstore.NewPool(ctx, cfg.Store.DSN)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()

			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func newExportCmd(loadConfig func(*cobra.Command) (config.Config, error)) *cobra.Command {
	var (
		limit int
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored candidates as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.DSN == "" {
				return fmt.Errorf("postgres-dsn is required for export")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			pool, err := pgstore.NewPool(ctx, cfg.Store.DSN)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()

			candidates, err := pgstore.NewCandidateStore(pool).Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("load candidates: %w", err)
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(candidates); err != nil {
				return fmt.Errorf("encode candidates: %w", err)
			}
			log.Info().Int("count", len(candidates)).Msg("export complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum candidates to export")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

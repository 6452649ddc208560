// Package config loads runtime configuration from a config file,
// RADAR_-prefixed environment variables, and command-line flags, in
// ascending precedence. Nothing here reads globals at use time: Load
// returns a Config value that the caller passes to each component.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Feed   FeedConfig
	Stream StreamConfig
	Dex    DexConfig
	Filter FilterConfig
	Ledger LedgerConfig
	Store  StoreConfig
	Notify NotifyConfig
	Server ServerConfig
	Log    LogConfig
}

// FeedConfig configures the announcement-feed source.
type FeedConfig struct {
	URL      string
	Interval time.Duration
	Keywords []string
}

// StreamConfig configures the exchange websocket source.
type StreamConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// DexConfig configures the aggregator client and polling source.
type DexConfig struct {
	BaseURL string
	// PollEnabled turns the recent-pairs polling source on. The
	// aggregator client itself stays on regardless; enrichment needs it.
	PollEnabled       bool
	PollInterval      time.Duration
	RecentWindow      time.Duration
	RequestsPerMinute int
}

// FilterConfig holds the legitimacy thresholds.
type FilterConfig struct {
	MinFDV       float64
	MinLiquidity float64
}

// LedgerConfig configures the dedup ledger.
type LedgerConfig struct {
	// ReclaimAfter is how long an unconfirmed reservation blocks
	// reprocessing of its key. Zero disables reclaim.
	ReclaimAfter time.Duration
}

// StoreConfig selects the backing store.
type StoreConfig struct {
	// DSN is the PostgreSQL connection string. Empty means in-memory
	// storage, which loses the ledger on restart.
	DSN string
}

// NotifyConfig configures the alert fanout.
type NotifyConfig struct {
	Webhooks   []string
	AlertsFile string
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Addr string
}

// LogConfig configures logging.
type LogConfig struct {
	Level string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("feed-interval", 120*time.Second)
	v.SetDefault("stream-reconnect-delay", 1*time.Second)
	v.SetDefault("stream-max-reconnect-delay", 30*time.Second)
	v.SetDefault("dex-base-url", "https://api.dexscreener.com")
	v.SetDefault("dex-poll-enabled", true)
	v.SetDefault("dex-poll-interval", 120*time.Second)
	v.SetDefault("dex-recent-window", 10*time.Minute)
	v.SetDefault("dex-requests-per-minute", 60)
	v.SetDefault("min-fdv", 1_000_000.0)
	v.SetDefault("min-liquidity", 5_000.0)
	v.SetDefault("ledger-reclaim-after", 15*time.Minute)
	v.SetDefault("server-addr", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("radar")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Feed: FeedConfig{
			URL:      v.GetString("feed-url"),
			Interval: v.GetDuration("feed-interval"),
			Keywords: getStringSlice(v, "feed-keywords"),
		},
		Stream: StreamConfig{
			URL:               v.GetString("stream-url"),
			ReconnectDelay:    v.GetDuration("stream-reconnect-delay"),
			MaxReconnectDelay: v.GetDuration("stream-max-reconnect-delay"),
		},
		Dex: DexConfig{
			BaseURL:           v.GetString("dex-base-url"),
			PollEnabled:       v.GetBool("dex-poll-enabled"),
			PollInterval:      v.GetDuration("dex-poll-interval"),
			RecentWindow:      v.GetDuration("dex-recent-window"),
			RequestsPerMinute: v.GetInt("dex-requests-per-minute"),
		},
		Filter: FilterConfig{
			MinFDV:       v.GetFloat64("min-fdv"),
			MinLiquidity: v.GetFloat64("min-liquidity"),
		},
		Ledger: LedgerConfig{
			ReclaimAfter: v.GetDuration("ledger-reclaim-after"),
		},
		Store: StoreConfig{
			DSN: v.GetString("postgres-dsn"),
		},
		Notify: NotifyConfig{
			Webhooks:   getStringSlice(v, "webhook"),
			AlertsFile: v.GetString("alerts-file"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server-addr"),
		},
		Log: LogConfig{
			Level: v.GetString("log-level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run. Bad config fails at
// startup, not mid-pipeline.
func (c Config) Validate() error {
	if c.Feed.URL == "" && c.Stream.URL == "" && !c.Dex.PollEnabled {
		return fmt.Errorf("no sources configured: set feed-url, stream-url, or dex-poll-enabled")
	}
	if c.Feed.URL != "" && c.Feed.Interval <= 0 {
		return fmt.Errorf("feed-interval must be positive")
	}
	if c.Dex.BaseURL == "" {
		return fmt.Errorf("dex-base-url is required")
	}
	if c.Dex.PollEnabled && (c.Dex.PollInterval <= 0 || c.Dex.RecentWindow <= 0) {
		return fmt.Errorf("dex-poll-interval and dex-recent-window must be positive")
	}
	if c.Dex.RequestsPerMinute <= 0 {
		return fmt.Errorf("dex-requests-per-minute must be positive")
	}
	if c.Filter.MinFDV < 0 || c.Filter.MinLiquidity < 0 {
		return fmt.Errorf("filter thresholds must not be negative")
	}
	if c.Ledger.ReclaimAfter < 0 {
		return fmt.Errorf("ledger-reclaim-after must not be negative")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

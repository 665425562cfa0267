package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"portfolioTracker/internal/logging"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Telegram  TelegramConfig  `toml:"telegram"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Provider  ProviderConfig  `toml:"provider"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

type TelegramConfig struct {
	Token            string `toml:"token"`
	WebhookPublicURL string `toml:"webhook_public_url"`
}

// OpenAIConfig is optional; /insight is disabled when APIKey is empty.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses Timeout, falling back to 45s.
func (c *OpenAIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}

// ProviderConfig configures the Yahoo chart client.
type ProviderConfig struct {
	Hosts     []string `toml:"hosts"`
	RateLimit int      `toml:"rate_limit"` // requests per second
	Timeout   string   `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

// GetTimeout parses Timeout, falling back to 20s.
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}

// AnalyticsConfig holds the fixed inputs of an analytics refresh.
type AnalyticsConfig struct {
	Benchmark     string    `toml:"benchmark"`
	ShortRange    string    `toml:"short_range"`
	LongRanges    []string  `toml:"long_ranges"`
	MinSamples    int       `toml:"min_samples"`
	Horizons      []float64 `toml:"horizons"`
	HistogramBins int       `toml:"histogram_bins"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// Logger converts the section into the logging package's options.
func (c LoggingConfig) Logger() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Outputs:    c.Outputs,
		FilePath:   c.FilePath,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}

func NewDefault() *Config {
	return &Config{
		Server:  ServerConfig{Port: "9095"},
		Storage: StorageConfig{DBPath: "/app/data/portfolio.db"},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: "45s",
		},
		Provider: ProviderConfig{
			Hosts:     []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"},
			RateLimit: 2,
			Timeout:   "20s",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		},
		Analytics: AnalyticsConfig{
			Benchmark:     "SPY",
			ShortRange:    "1y",
			LongRanges:    []string{"10y", "5y", "2y"},
			MinSamples:    60,
			Horizons:      []float64{0.25, 0.5, 0.75, 1.0},
			HistogramBins: 12,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}

// Load merges the TOML files in order (later files win, missing files are skipped),
// then applies environment overrides.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefault()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("WEBHOOK_PUBLIC_URL"); v != "" {
		cfg.Telegram.WebhookPublicURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BENCHMARK_TICKER"); v != "" {
		cfg.Analytics.Benchmark = v
	}
	if v := os.Getenv("PROVIDER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.RateLimit = n
		}
	}
}

func (c *Config) normalize() {
	c.Analytics.Benchmark = strings.ToUpper(strings.TrimSpace(c.Analytics.Benchmark))
	c.Analytics.ShortRange = strings.ToLower(strings.TrimSpace(c.Analytics.ShortRange))
	for i, r := range c.Analytics.LongRanges {
		c.Analytics.LongRanges[i] = strings.ToLower(strings.TrimSpace(r))
	}
	if c.Analytics.HistogramBins <= 0 {
		c.Analytics.HistogramBins = 12
	}
	if c.Provider.RateLimit <= 0 {
		c.Provider.RateLimit = 1
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

// Validate lists every mandatory value that is missing or invalid.
func (c *Config) Validate() []string {
	var issues []string
	if c.Telegram.Token == "" {
		issues = append(issues, "telegram.token (TELEGRAM_BOT_TOKEN) is required")
	}
	if c.Telegram.WebhookPublicURL == "" {
		issues = append(issues, "telegram.webhook_public_url (WEBHOOK_PUBLIC_URL) is required")
	}
	if c.Storage.DBPath == "" {
		issues = append(issues, "storage.db_path (DB_PATH) is required")
	}
	if len(c.Provider.Hosts) == 0 {
		issues = append(issues, "provider.hosts must list at least one host")
	}
	if c.Analytics.Benchmark == "" {
		issues = append(issues, "analytics.benchmark is required")
	}
	if c.Analytics.ShortRange == "" {
		issues = append(issues, "analytics.short_range is required")
	}
	if len(c.Analytics.LongRanges) == 0 {
		issues = append(issues, "analytics.long_ranges must list at least one range")
	}
	if c.Analytics.MinSamples <= 0 {
		issues = append(issues, "analytics.min_samples must be positive")
	}
	if len(c.Analytics.Horizons) == 0 {
		issues = append(issues, "analytics.horizons must list at least one horizon")
	}
	for _, h := range c.Analytics.Horizons {
		if h <= 0 {
			issues = append(issues, fmt.Sprintf("analytics.horizons: %v is not a positive number of years", h))
		}
	}
	return issues
}

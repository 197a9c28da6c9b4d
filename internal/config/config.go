package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Campaign  CampaignConfig  `mapstructure:"campaign"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Media     MediaConfig     `mapstructure:"media"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"` // sqlite file path
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// SourcesConfig holds all trend source configurations
type SourcesConfig struct {
	RSS    RSSConfig    `mapstructure:"rss"`
	Trends TrendsConfig `mapstructure:"trends"`
}

// RSSConfig holds RSS feed settings
type RSSConfig struct {
	Enabled bool      `mapstructure:"enabled"`
	Feeds   []RSSFeed `mapstructure:"feeds"`
	MaxAge  string    `mapstructure:"max_age"` // skip items older than this, e.g. "168h"
}

// RSSFeed represents a single RSS feed
type RSSFeed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// TrendsConfig holds Google Trends settings. The daily trending RSS is used.
type TrendsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Geo     string `mapstructure:"geo"`
	URL     string `mapstructure:"url"` // override, mostly for tests
	Limit   int    `mapstructure:"limit"`
}

// ProvidersConfig holds credentials for every publishing destination
type ProvidersConfig struct {
	WeChat     WeChatConfig     `mapstructure:"wechat"`
	XHS        XHSConfig        `mapstructure:"xhs"`
	GoogleDocs GoogleDocsConfig `mapstructure:"googledocs"`
}

// WeChatConfig holds WeChat official account credentials
type WeChatConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// XHSConfig holds Xiaohongshu session credentials
type XHSConfig struct {
	Cookie string `mapstructure:"cookie"`
}

// GoogleDocsConfig holds service account credentials and the target Drive folder
type GoogleDocsConfig struct {
	CredentialsJSON string `mapstructure:"credentials_json"`
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

// HasCredentials reports whether either credential form is present
func (g GoogleDocsConfig) HasCredentials() bool {
	return g.CredentialsJSON != "" || g.CredentialsFile != ""
}

// CampaignConfig holds campaign run settings
type CampaignConfig struct {
	Platforms       []string      `mapstructure:"platforms"`
	PendingLimit    int           `mapstructure:"pending_limit"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout"`
	DiscoverTimeout time.Duration `mapstructure:"discover_timeout"`
	BrandVoice      string        `mapstructure:"brand_voice"`
}

// RegistryConfig holds provider registry settings
type RegistryConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	CampaignCron string `mapstructure:"campaign_cron"`
	PublishCron  string `mapstructure:"publish_cron"` // empty disables auto-publishing of approved content
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	AnthropicRequestsPerMinute int `mapstructure:"anthropic_requests_per_minute"`
	GoogleRequestsPerMinute    int `mapstructure:"google_requests_per_minute"`
	RSSRequestsPerSecond       int `mapstructure:"rss_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// TrackerConfig holds Google Sheets tracker settings
type TrackerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	SheetName     string `mapstructure:"sheet_name"`
}

// MediaConfig holds image lookup settings
type MediaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	UnsplashAPIKey string `mapstructure:"unsplash_api_key"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".campaign-agent"))
		}
	}

	v.SetEnvPrefix("CAMPAIGN")
	v.AutomaticEnv()

	// Viper doesn't auto-bind underscored nested keys
	v.BindEnv("anthropic.api_key", "CAMPAIGN_ANTHROPIC_API_KEY")
	v.BindEnv("database.dsn", "CAMPAIGN_DATABASE_DSN")
	v.BindEnv("providers.wechat.app_id", "CAMPAIGN_WECHAT_APP_ID")
	v.BindEnv("providers.wechat.app_secret", "CAMPAIGN_WECHAT_APP_SECRET")
	v.BindEnv("providers.xhs.cookie", "CAMPAIGN_XHS_COOKIE")
	v.BindEnv("providers.googledocs.credentials_json", "CAMPAIGN_GOOGLE_CREDENTIALS_JSON")
	v.BindEnv("providers.googledocs.credentials_file", "CAMPAIGN_GOOGLE_CREDENTIALS_FILE")
	v.BindEnv("providers.googledocs.folder_id", "CAMPAIGN_GOOGLE_DOCS_FOLDER_ID")
	v.BindEnv("tracker.enabled", "CAMPAIGN_TRACKER_ENABLED")
	v.BindEnv("tracker.spreadsheet_id", "CAMPAIGN_TRACKER_SPREADSHEET_ID")
	v.BindEnv("media.enabled", "CAMPAIGN_MEDIA_ENABLED")
	v.BindEnv("media.unsplash_api_key", "CAMPAIGN_MEDIA_UNSPLASH_API_KEY")
	v.BindEnv("server.addr", "CAMPAIGN_SERVER_ADDR")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "./data/campaign.db")

	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.7)

	v.SetDefault("sources.rss.enabled", true)
	v.SetDefault("sources.rss.max_age", "168h")
	v.SetDefault("sources.trends.enabled", true)
	v.SetDefault("sources.trends.geo", "US")
	v.SetDefault("sources.trends.limit", 20)

	v.SetDefault("campaign.platforms", []string{"wechat", "xhs"})
	v.SetDefault("campaign.pending_limit", 5)
	v.SetDefault("campaign.generate_timeout", "90s")
	v.SetDefault("campaign.publish_timeout", "60s")
	v.SetDefault("campaign.discover_timeout", "2m")
	v.SetDefault("campaign.brand_voice", "Clear, friendly and informative. Speak to curious readers, avoid hype.")

	v.SetDefault("registry.cache_ttl", "60s")

	v.SetDefault("scheduler.campaign_cron", "0 9 * * *") // 9am daily
	v.SetDefault("scheduler.publish_cron", "")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)
	v.SetDefault("rate_limit.google_requests_per_minute", 60)
	v.SetDefault("rate_limit.rss_requests_per_second", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("tracker.enabled", false)
	v.SetDefault("tracker.sheet_name", "Published")

	v.SetDefault("media.enabled", false)
}

// Validate checks settings required to run a campaign. Provider credentials
// are not checked here; the provider registry owns that gate.
func (c *Config) Validate() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Campaign.PendingLimit <= 0 {
		return fmt.Errorf("campaign.pending_limit must be positive")
	}
	if c.Tracker.Enabled && c.Tracker.SpreadsheetID == "" {
		return fmt.Errorf("tracker.spreadsheet_id is required when tracker is enabled")
	}
	return nil
}

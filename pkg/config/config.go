package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName is used for the per-user state and data directories.
const AppName = "snapbot"

// Config stores all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	SearchQuery    string `mapstructure:"SEARCH_QUERY"`
	TargetDomain   string `mapstructure:"TARGET_DOMAIN"`
	SearchSort     string `mapstructure:"SEARCH_SORT"`
	SearchWindow   string `mapstructure:"SEARCH_WINDOW"`
	PollInterval   int    `mapstructure:"POLL_INTERVAL_SECONDS"`
	RenderTimeout  int    `mapstructure:"RENDER_TIMEOUT_SECONDS"`
	ViewportWidth  int    `mapstructure:"VIEWPORT_WIDTH"`
	ViewportHeight int    `mapstructure:"VIEWPORT_HEIGHT"`

	CommentTemplate string `mapstructure:"COMMENT_TEMPLATE"`

	RedditBaseURL  string `mapstructure:"REDDIT_BASE_URL"`
	RedditUsername string `mapstructure:"REDDIT_USERNAME"`
	RedditPassword string `mapstructure:"REDDIT_PASSWORD"`

	ImgurUploadURL string `mapstructure:"IMGUR_UPLOAD_URL"`
	ImgurAPIKey    string `mapstructure:"IMGUR_API_KEY"`

	StateBackend  string `mapstructure:"STATE_BACKEND"`
	StateFile     string `mapstructure:"STATE_FILE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	SQLiteDir     string `mapstructure:"SQLITE_DIR"`

	HTTPAddr  string `mapstructure:"HTTP_ADDR"`
	Proxies   string `mapstructure:"PROXIES"`
	UserAgent string `mapstructure:"USER_AGENT"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine, the environment alone is enough.
	_ = v.ReadInConfig()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEARCH_QUERY", "craigslist.org")
	v.SetDefault("TARGET_DOMAIN", "craigslist.org")
	v.SetDefault("SEARCH_SORT", "new")
	v.SetDefault("SEARCH_WINDOW", "day")
	v.SetDefault("POLL_INTERVAL_SECONDS", 660)
	v.SetDefault("RENDER_TIMEOUT_SECONDS", 300)
	v.SetDefault("VIEWPORT_WIDTH", 800)
	v.SetDefault("VIEWPORT_HEIGHT", 600)
	v.SetDefault("COMMENT_TEMPLATE", "Imgur cache: %s")
	v.SetDefault("REDDIT_BASE_URL", "https://www.reddit.com")
	v.SetDefault("REDDIT_USERNAME", "")
	v.SetDefault("REDDIT_PASSWORD", "")
	v.SetDefault("IMGUR_UPLOAD_URL", "http://imgur.com/api/upload.json")
	v.SetDefault("IMGUR_API_KEY", "")
	v.SetDefault("STATE_BACKEND", "file")
	v.SetDefault("STATE_FILE", filepath.Join(xdg.StateHome, AppName, "state.yaml"))
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SQLITE_DIR", filepath.Join(xdg.DataHome, AppName))
	v.SetDefault("HTTP_ADDR", ":9090")
	v.SetDefault("PROXIES", "")
	v.SetDefault("USER_AGENT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a cycle.
func (c *Config) Validate() error {
	if c.TargetDomain == "" {
		return errors.New("TARGET_DOMAIN must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive, got %d", c.PollInterval)
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT_SECONDS must be positive, got %d", c.RenderTimeout)
	}
	if !strings.Contains(c.CommentTemplate, "%s") {
		return errors.New("COMMENT_TEMPLATE must contain %s for the image URL")
	}
	switch c.StateBackend {
	case "file", "redis", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}
	if c.StateBackend == "postgres" && c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required for the postgres state backend")
	}
	return nil
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Config) RenderTimeoutDuration() time.Duration {
	return time.Duration(c.RenderTimeout) * time.Second
}

// ProxyList splits PROXIES on commas.
func (c *Config) ProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.Proxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

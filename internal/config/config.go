package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	applog "shopapp/internal/log"
)

type Config struct {
	App     AppConfig
	Catalog CatalogConfig
	Session SessionConfig
	Log     applog.Config
	Web     WebConfig
	HTTP    HTTPConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type CatalogConfig struct {
	BaseURL       string
	Timeout       time.Duration // 0 disables the client timeout
	RatePerSecond float64       // 0 disables outbound throttling
	Burst         int
	StaleAfter    time.Duration
	DSN           string
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type WebConfig struct {
	Templates string
	Static    string
}

type HTTPConfig struct {
	RateLimit int // requests per minute per IP, 0 disables
	BodyLimit int
	AccessLog bool // fiber access log on stdout
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")

	v.SetDefault("catalog.base_url", "https://fakestoreapi.com")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.rate_per_second", 5.0)
	v.SetDefault("catalog.burst", 5)
	v.SetDefault("catalog.stale_after", "5m")
	v.SetDefault("catalog.dsn", ":memory:")

	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("web.templates", "./web/templates")
	v.SetDefault("web.static", "./web/static")

	v.SetDefault("http.rate_limit", 60)
	v.SetDefault("http.body_limit", 1<<20)
	v.SetDefault("http.access_log", true)
}

// Load reads configuration. Priority (highest first): SHOPAPP_* environment
// variables (SHOPAPP_CATALOG_BASE_URL), config.toml, built-in defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOPAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		App: AppConfig{
			Port: v.GetString("app.port"),
			Env:  v.GetString("app.env"),
		},
		Catalog: CatalogConfig{
			BaseURL:       strings.TrimRight(v.GetString("catalog.base_url"), "/"),
			Timeout:       v.GetDuration("catalog.timeout"),
			RatePerSecond: v.GetFloat64("catalog.rate_per_second"),
			Burst:         v.GetInt("catalog.burst"),
			StaleAfter:    v.GetDuration("catalog.stale_after"),
			DSN:           v.GetString("catalog.dsn"),
		},
		Session: SessionConfig{
			IdleTTL:       v.GetDuration("session.idle_ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Log: applog.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Web: WebConfig{
			Templates: v.GetString("web.templates"),
			Static:    v.GetString("web.static"),
		},
		HTTP: HTTPConfig{
			RateLimit: v.GetInt("http.rate_limit"),
			BodyLimit: v.GetInt("http.body_limit"),
			AccessLog: v.GetBool("http.access_log"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if c.Catalog.StaleAfter < 0 || c.Catalog.Timeout < 0 {
		return fmt.Errorf("catalog durations must not be negative")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be positive")
	}
	return nil
}

// Fields is the loggable view of the configuration.
func (c Config) Fields() map[string]any {
	return map[string]any{
		"port":          c.App.Port,
		"env":           c.App.Env,
		"catalog_url":   c.Catalog.BaseURL,
		"catalog_dsn":   c.Catalog.DSN,
		"stale_after":   c.Catalog.StaleAfter.String(),
		"session_ttl":   c.Session.IdleTTL.String(),
		"templates_dir": c.Web.Templates,
		"log_level":     c.Log.Level,
	}
}

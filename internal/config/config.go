// Package config loads the service configuration from a YAML file.
// The file path comes from CONFIG_PATH and defaults to config.yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "90s" or "1h" parse;
// bare integers are taken as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q", s)
		}
		*d = Duration(dur)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PaperSize describes a named paper format in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PostgresConfig points at the API token store. An empty host disables
// token authentication entirely.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Config is the full service configuration.
type Config struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Limits struct {
		MaxHTMLBytes int `yaml:"max_html_bytes"`
		MaxPDFBytes  int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Cache struct {
		PDFCacheEnabled bool     `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string   `yaml:"redis_host"`
		RateLimitDB     int      `yaml:"redis_rate_db"`
		PDFCacheDB      int      `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval          Duration `yaml:"interval"`
		UserLimit         int      `yaml:"user_limit"`
		EnableUserLimiter bool     `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	PDF struct {
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		UserDataDir     string               `yaml:"user_data_dir"`
		TimeoutSecs     int                  `yaml:"timeout_secs"`
		MaxConcurrent   int                  `yaml:"max_concurrent"`
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
	} `yaml:"pdf"`
}

// Load reads the config from CONFIG_PATH (default "config.yaml").
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads, fills in defaults and validates. Unusable values panic:
// the service cannot run with a broken config and this only happens at
// boot.
func LoadFrom(path string) Config {
	var cfg Config

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: cannot parse %s: %v", path, err))
		}
	}

	applyDefaults(&cfg)
	validate(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "chromium-pdf"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Limits.MaxHTMLBytes == 0 {
		cfg.Limits.MaxHTMLBytes = 10 * 1024 * 1024
	}
	if cfg.Limits.MaxPDFBytes == 0 {
		cfg.Limits.MaxPDFBytes = 50 * 1024 * 1024
	}
	if cfg.Cache.PDFCacheTTL == 0 {
		cfg.Cache.PDFCacheTTL = Duration(24 * time.Hour)
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = Duration(time.Minute)
	}
	if cfg.PDF.TimeoutSecs == 0 {
		cfg.PDF.TimeoutSecs = 180
	}
	if cfg.PDF.MaxConcurrent == 0 {
		cfg.PDF.MaxConcurrent = 4
	}
	if cfg.PDF.DefaultPaper == "" {
		cfg.PDF.DefaultPaper = "A4"
	}
	if cfg.PDF.PaperSizes == nil {
		cfg.PDF.PaperSizes = map[string]PaperSize{
			"A3":      {Width: 11.69, Height: 16.54},
			"A4":      {Width: 8.27, Height: 11.69},
			"A5":      {Width: 5.83, Height: 8.27},
			"LETTER":  {Width: 8.5, Height: 11},
			"LEGAL":   {Width: 8.5, Height: 14},
			"TABLOID": {Width: 11, Height: 17},
		}
	}
}

func validate(cfg *Config) {
	if cfg.PDF.TimeoutSecs < 0 {
		panic("config: pdf.timeout_secs must not be negative")
	}
	if cfg.PDF.MaxConcurrent < 0 {
		panic("config: pdf.max_concurrent must not be negative")
	}
	if _, ok := cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]; !ok {
		panic(fmt.Sprintf("config: pdf.default_paper %q has no entry in pdf.paper_sizes", cfg.PDF.DefaultPaper))
	}
	if cfg.RateLimiter.UserLimit < 0 {
		panic("config: rate_limiter.user_limit must not be negative")
	}
}

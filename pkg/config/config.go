package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"AttackDash/internal/domain/models"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Timezone    string `yaml:"timezone" default:"Local"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Loki struct {
		BaseURL string        `yaml:"base_url" default:"http://192.168.100.22:3100"`
		Job     string        `yaml:"job" default:"unifi_wan"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"loki"`
	Quotes struct {
		BaseURL   string          `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		Timeout   time.Duration   `yaml:"timeout" default:"10s"`
		CacheTTL  time.Duration   `yaml:"cache_ttl" default:"5m"`
		UserAgent string          `yaml:"user_agent" default:"Mozilla/5.0 (compatible; AttackDash/1.0)"`
		Indices   []models.Symbol `yaml:"indices"`
		Stocks    []models.Symbol `yaml:"stocks"`
	} `yaml:"quotes"`
	Forecast struct {
		ForecastURL     string        `yaml:"forecast_url" default:"https://opendata-download-metfcst.smhi.se"`
		ObservationsURL string        `yaml:"observations_url" default:"https://opendata-download-metobs.smhi.se"`
		SunURL          string        `yaml:"sun_url" default:"https://api.sunrise-sunset.org"`
		Latitude        float64       `yaml:"latitude" default:"59.44"`
		Longitude       float64       `yaml:"longitude" default:"18.07"`
		Timeout         time.Duration `yaml:"timeout" default:"15s"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"30m"`
		ExtremesTTL     time.Duration `yaml:"extremes_ttl" default:"1h"`
	} `yaml:"forecast"`
	Breaker struct {
		FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
		OpenTimeout      time.Duration `yaml:"open_timeout" default:"30s"`
	} `yaml:"breaker"`
	Cache struct {
		Backend         string        `yaml:"backend" default:"memory"`
		MaxSize         int           `yaml:"max_size" default:"1000"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		Redis           struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"attackdash:"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Dashboard struct {
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"30s"`
		RecentLimit     int           `yaml:"recent_limit" default:"10"`
	} `yaml:"dashboard"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		LogTopic    string   `yaml:"log_topic" default:"attackdash.logs"`
		Compression string   `yaml:"compression" default:"gzip"`
	} `yaml:"kafka"`
	RateLimit struct {
		Enabled         bool    `yaml:"enabled" default:"true"`
		Capacity        int     `yaml:"capacity" default:"60"`
		RefillPerSecond float64 `yaml:"refill_per_second" default:"1"`
	} `yaml:"ratelimit"`
}

// DefaultIndices is the index table used when the config lists none.
var DefaultIndices = []models.Symbol{
	{Symbol: "^GDAXI", Name: "DAX"},
	{Symbol: "^OMX", Name: "OMX30"},
	{Symbol: "^GSPC", Name: "S&P 500"},
	{Symbol: "^IXIC", Name: "NASDAQ"},
}

// DefaultStocks is the stock table used when the config lists none.
var DefaultStocks = []models.Symbol{
	{Symbol: "ELUX-B.ST", Name: "Electrolux B"},
	{Symbol: "VOLCAR-B.ST", Name: "Volvo Cars B"},
	{Symbol: "ERIC-B.ST", Name: "Ericsson B"},
	{Symbol: "HM-B.ST", Name: "H&M B"},
	{Symbol: "ATCO-A.ST", Name: "Atlas Copco A"},
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, decodes YAML over them and validates. Defaults go
// first so explicit false or zero values in the document survive.
func Parse(b []byte) (*Config, error) {
	var c Config
	c.applyDefaults()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error; defaults and env apply.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	if _, err := os.Stat(path); err == nil {
		if c, err = Load(path); err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	// defaults.Set only fills zero values; the error is for malformed tags.
	_ = defaults.Set(c)
	if len(c.Quotes.Indices) == 0 {
		c.Quotes.Indices = append([]models.Symbol(nil), DefaultIndices...)
	}
	if len(c.Quotes.Stocks) == 0 {
		c.Quotes.Stocks = append([]models.Symbol(nil), DefaultStocks...)
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("LOKI_URL"); v != "" {
		c.Loki.BaseURL = v
	}
	if v := getenv("LOKI_JOB"); v != "" {
		c.Loki.Job = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Loki.BaseURL == "" {
		return fmt.Errorf("loki.base_url is required")
	}
	if c.Loki.Job == "" {
		return fmt.Errorf("loki.job is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "layered" {
		return fmt.Errorf("cache.backend must be 'memory' or 'layered'")
	}
	if c.Forecast.Latitude < -90 || c.Forecast.Latitude > 90 {
		return fmt.Errorf("forecast.latitude out of range")
	}
	if c.Forecast.Longitude < -180 || c.Forecast.Longitude > 180 {
		return fmt.Errorf("forecast.longitude out of range")
	}
	if c.Dashboard.RefreshInterval <= 0 {
		return fmt.Errorf("dashboard.refresh_interval must be positive")
	}
	if c.Log.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when log.collector is enabled")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

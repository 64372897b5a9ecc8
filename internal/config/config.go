package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// EnvPrefix is prepended to every environment variable, e.g. COT_SERVER_PORT.
const EnvPrefix = "COT"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Sources  SourcesConfig  `envconfig:"SOURCES"`
	Analysis AnalysisConfig `envconfig:"ANALYSIS"`
	Kafka    KafkaConfig    `envconfig:"KAFKA"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	LogLevel string         `envconfig:"LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"PORT" default:"8082"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SourcesConfig holds the rules, catalog and upstream data settings.
// Empty file paths select the embedded defaults.
type SourcesConfig struct {
	RulesFile    string        `envconfig:"RULES_FILE"`
	CatalogFile  string        `envconfig:"CATALOG_FILE"`
	CFTCURL      string        `envconfig:"CFTC_URL" default:"https://www.cftc.gov/files/dea/history/fut_disagg_txt_%d.zip"`
	ChartURL     string        `envconfig:"CHART_URL" default:"https://query1.finance.yahoo.com/v8/finance/chart/"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`
	RateLimitRPS float64       `envconfig:"RATE_LIMIT_RPS" default:"2"`
	RateBurst    int           `envconfig:"RATE_LIMIT_BURST" default:"4"`
}

// AnalysisConfig holds pipeline defaults
type AnalysisConfig struct {
	Timezone         string `envconfig:"TIMEZONE" default:"America/New_York"`
	LookbackDays     int    `envconfig:"LOOKBACK_DAYS" default:"365"`
	TrendWindow      int    `envconfig:"TREND_WINDOW" default:"50"`
	DefaultRangeDays int    `envconfig:"DEFAULT_RANGE_DAYS" default:"365"`
}

// KafkaConfig holds Kafka/Redpanda configuration. Empty brokers disable
// event publishing and the refresh consumer.
type KafkaConfig struct {
	Brokers       string `envconfig:"BROKERS"`
	Topic         string `envconfig:"TOPIC" default:"cot-signal-events"`
	RefreshTopic  string `envconfig:"REFRESH_TOPIC" default:"cot-refresh-requests"`
	ConsumerGroup string `envconfig:"CONSUMER_GROUP" default:"cot-signal-service"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"false"`
	Host     string        `envconfig:"HOST" default:"localhost"`
	Port     string        `envconfig:"PORT" default:"6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	TTL      time.Duration `envconfig:"TTL" default:"6h"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if !strings.Contains(c.Sources.CFTCURL, "%d") {
		errs = append(errs, fmt.Errorf("cftc url %q must contain %%d for the year", c.Sources.CFTCURL))
	}
	if c.Sources.ChartURL == "" {
		errs = append(errs, errors.New("chart url is required"))
	}
	if c.Sources.RateLimitRPS <= 0 || c.Sources.RateBurst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}
	if _, err := models.LoadMarketLocation(c.Analysis.Timezone); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.LookbackDays <= 0 {
		errs = append(errs, fmt.Errorf("lookback days must be positive, got %d", c.Analysis.LookbackDays))
	}
	if c.Analysis.TrendWindow <= 0 {
		errs = append(errs, fmt.Errorf("trend window must be positive, got %d", c.Analysis.TrendWindow))
	}
	if c.Analysis.DefaultRangeDays <= 0 {
		errs = append(errs, fmt.Errorf("default range days must be positive, got %d", c.Analysis.DefaultRangeDays))
	}
	if len(c.Kafka.BrokerList()) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	if c.Redis.Enabled && c.Redis.TTL <= 0 {
		errs = append(errs, errors.New("redis ttl must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// BrokerList splits the comma-separated broker list
func (k *KafkaConfig) BrokerList() []string {
	parts := strings.Split(k.Brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

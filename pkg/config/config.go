package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"StockSense/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		PrepareRate     float64       `yaml:"prepare_rate" default:"1"`
		PrepareBurst    float64       `yaml:"prepare_burst" default:"5"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Source     SourceConfig     `yaml:"source"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Forecast   ForecastConfig   `yaml:"forecast"`
	Handoff    HandoffConfig    `yaml:"handoff"`
	Redis      struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"stocksense"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
	} `yaml:"redis"`
	Kafka      KafkaConfig `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stocksense"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// KafkaConfig drives the forecast event producer and the run trigger consumer.
type KafkaConfig struct {
	Enabled       bool                `yaml:"enabled"`
	Brokers       []string            `yaml:"brokers"`
	ForecastTopic string              `yaml:"forecast_topic" default:"stocksense.forecasts"`
	RunsTopic     string              `yaml:"runs_topic" default:"stocksense.runs"`
	RequiredAcks  int                 `yaml:"required_acks" default:"1"`
	Compression   string              `yaml:"compression" default:"snappy"`
	Producer      KafkaProducerConfig `yaml:"producer"`
	Consumer      KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"10ms"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

type KafkaConsumerConfig struct {
	GroupID    string        `yaml:"group_id" default:"stocksense-runs"`
	Workers    int           `yaml:"workers" default:"1"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
}

// SourceConfig locates the upstream transaction service.
type SourceConfig struct {
	BaseURL          string        `yaml:"base_url" default:"http://localhost:8000"`
	LoginPath        string        `yaml:"login_path" default:"/api/v1/auth/login"`
	TransactionsPath string        `yaml:"transactions_path" default:"/api/v1/transactions"`
	Sort             string        `yaml:"sort" default:"-date"`
	Timeout          time.Duration `yaml:"timeout" default:"30s"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" default:"67108864"`
	// ServiceToken is the credential used for runs triggered from Kafka.
	ServiceToken string `yaml:"service_token"`
}

// NormalizerConfig names the upstream record fields.
type NormalizerConfig struct {
	EntityField    string `yaml:"entity_field" default:"productName"`
	TypeField      string `yaml:"type_field" default:"transactionType"`
	TimestampField string `yaml:"timestamp_field" default:"date"`
	QuantityField  string `yaml:"quantity_field" default:"quantity"`
	AmountField    string `yaml:"amount_field" default:"amount"`
	Timezone       string `yaml:"timezone" default:"UTC"`
}

// Location resolves the configured time zone.
func (n NormalizerConfig) Location() (*time.Location, error) {
	if n.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(n.Timezone)
}

type ForecastConfig struct {
	AROrder    int           `yaml:"ar_order" default:"5"`
	Diff       int           `yaml:"diff" default:"1"`
	MAOrder    int           `yaml:"ma_order"`
	Horizon    int           `yaml:"horizon" default:"4"`
	WeekEnd    string        `yaml:"week_end" default:"sunday"`
	ZeroFill   *bool         `yaml:"zero_fill" default:"true"`
	FitTimeout time.Duration `yaml:"fit_timeout" default:"5s"`
	Workers    int           `yaml:"workers" default:"1"`
}

// WeekEndDay parses WeekEnd into a weekday.
func (f ForecastConfig) WeekEndDay() (time.Weekday, error) {
	return ParseWeekday(f.WeekEnd)
}

// ZeroFillEnabled reports the zero fill setting, on unless disabled.
func (f ForecastConfig) ZeroFillEnabled() bool {
	return f.ZeroFill == nil || *f.ZeroFill
}

type HandoffConfig struct {
	Backend    string        `yaml:"backend" default:"file"` // file, sqlite, redis, clickhouse
	Dir        string        `yaml:"dir" default:"data/artifacts"`
	SQLitePath string        `yaml:"sqlite_path" default:"data/handoff.db"`
	Table      string        `yaml:"table" default:"handoff_artifacts"`
	LockTTL    time.Duration `yaml:"lock_ttl" default:"5m"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts full or three letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdays[s]; ok {
		return d, nil
	}
	for name, d := range weekdays {
		if len(s) == 3 && strings.HasPrefix(name, s) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
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

// Parse decodes YAML on top of defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("SOURCE_BASE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := getenv("SOURCE_SERVICE_TOKEN"); v != "" {
		c.Source.ServiceToken = v
	}
	if v := getenv("HANDOFF_BACKEND"); v != "" {
		c.Handoff.Backend = v
	}
	if v := getenv("HANDOFF_DIR"); v != "" {
		c.Handoff.Dir = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if _, err := c.Normalizer.Location(); err != nil {
		return fmt.Errorf("normalizer.timezone: %w", err)
	}
	n := c.Normalizer
	for name, v := range map[string]string{
		"entity_field":    n.EntityField,
		"type_field":      n.TypeField,
		"timestamp_field": n.TimestampField,
		"quantity_field":  n.QuantityField,
		"amount_field":    n.AmountField,
	} {
		if v == "" {
			return fmt.Errorf("normalizer.%s is required", name)
		}
	}

	f := c.Forecast
	if f.AROrder < 1 {
		return fmt.Errorf("forecast.ar_order must be positive, got %d", f.AROrder)
	}
	if f.Diff < 0 {
		return fmt.Errorf("forecast.diff must not be negative, got %d", f.Diff)
	}
	if f.MAOrder != 0 {
		return fmt.Errorf("forecast.ma_order must be 0, got %d", f.MAOrder)
	}
	if f.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be positive, got %d", f.Horizon)
	}
	if f.Workers < 1 {
		return fmt.Errorf("forecast.workers must be positive, got %d", f.Workers)
	}
	if f.FitTimeout <= 0 {
		return fmt.Errorf("forecast.fit_timeout must be positive")
	}
	if _, err := f.WeekEndDay(); err != nil {
		return fmt.Errorf("forecast.week_end: %w", err)
	}

	switch c.Handoff.Backend {
	case "file":
		if c.Handoff.Dir == "" {
			return fmt.Errorf("handoff.dir is required for the file backend")
		}
	case "sqlite":
		if c.Handoff.SQLitePath == "" {
			return fmt.Errorf("handoff.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("handoff.backend 'redis' requires redis.enabled")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
		}
	default:
		return fmt.Errorf("handoff.backend must be 'file', 'sqlite', 'redis' or 'clickhouse', got '%s'", c.Handoff.Backend)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

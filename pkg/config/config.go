package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Kafka struct {
		Brokers      []string `yaml:"brokers" validate:"min=1"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Topics       struct {
			DownloadedSymbols string `yaml:"downloaded_symbols" default:"marketwatch.symbols.downloaded"`
			ValidSymbols      string `yaml:"valid_symbols" default:"marketwatch.symbols.valid"`
			AbnormalPrice     string `yaml:"abnormal_price" default:"marketwatch.symbols.abnormal-price"`
			AbnormalVolume    string `yaml:"abnormal_volume" default:"marketwatch.symbols.abnormal-volume"`
			AbnormalSpread    string `yaml:"abnormal_spread" default:"marketwatch.symbols.abnormal-spread"`
			TradeSignals      string `yaml:"trade_signals" default:"marketwatch.signals.trade"`
		} `yaml:"topics"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"marketwatch-strategy"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"marketwatch"`
	} `yaml:"redis"`

	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"marketwatch"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Exchanges []ExchangeConfig `yaml:"exchanges" validate:"min=1,dive"`

	Market struct {
		LimitSymbols         int           `yaml:"limit_symbols" default:"40"`
		DownloadInterval     time.Duration `yaml:"download_interval" default:"5h"`
		Period               string        `yaml:"period" default:"15m"`
		HistoryWindowMinutes int           `yaml:"history_window_minutes" default:"480"`
		MaxRetries           int           `yaml:"max_retries" default:"3"`
		RetryBackoffBase     time.Duration `yaml:"retry_backoff_base" default:"1s"`
	} `yaml:"market"`

	Anomaly struct {
		BaselineTTL time.Duration `yaml:"baseline_ttl" default:"72h"`
		Price       Band          `yaml:"price"`
		Volume      Band          `yaml:"volume"`
		Spread      Band          `yaml:"spread"`
	} `yaml:"anomaly"`

	Strategies struct {
		Dir         string `yaml:"dir"`
		LoadPlugins bool   `yaml:"load_plugins"`
	} `yaml:"strategies"`
}

// ExchangeConfig names one exchange and its credentials.
type ExchangeConfig struct {
	Name      string `yaml:"name" validate:"required"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Band bounds the acceptable current/baseline ratio for one metric. A current
// value above Upper*baseline or below Lower*baseline is abnormal.
type Band struct {
	Upper float64 `yaml:"upper" default:"1.5"`
	Lower float64 `yaml:"lower" default:"0.5"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" && len(c.Exchanges) > 0 {
		c.Exchanges[0].APIKey = v
	}
	if v := os.Getenv("EXCHANGE_API_SECRET"); v != "" && len(c.Exchanges) > 0 {
		c.Exchanges[0].APISecret = v
	}
	if v := os.Getenv("STRATEGIES_DIR"); v != "" {
		c.Strategies.Dir = v
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, band := range []Band{c.Anomaly.Price, c.Anomaly.Volume, c.Anomaly.Spread} {
		if band.Upper <= 1 || band.Lower >= 1 || band.Lower < 0 {
			return fmt.Errorf("anomaly band must satisfy lower < 1 < upper, got [%v, %v]", band.Lower, band.Upper)
		}
	}
	if c.Market.LimitSymbols <= 0 {
		return fmt.Errorf("market.limit_symbols must be positive")
	}
	return nil
}

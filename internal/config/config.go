package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Carrier    CarrierConfig   `mapstructure:"carrier"`
	Relay      RelayConfig     `mapstructure:"relay"`
	Converter  ConverterConfig `mapstructure:"converter"`
	Dedup      DedupConfig     `mapstructure:"dedup"`
	Webhook    WebhookConfig   `mapstructure:"webhook"`
	Reports    ReportsConfig   `mapstructure:"reports"`
	Recorder   RecorderConfig  `mapstructure:"recorder"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type CarrierConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RelayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ConverterConfig struct {
	BaseURL  string        `mapstructure:"base_url"`  // Labelary-compatible rasterizer
	DPMM     int           `mapstructure:"dpmm"`      // dots per millimeter (8 = 203dpi)
	WidthIn  float64       `mapstructure:"width_in"`  // label width, inches
	HeightIn float64       `mapstructure:"height_in"` // label height, inches
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DedupConfig struct {
	Backend   string        `mapstructure:"backend"` // "redis" | "memory"
	Retention time.Duration `mapstructure:"retention"`
	ClaimTTL  time.Duration `mapstructure:"claim_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type WebhookConfig struct {
	LegacyAccountID string `mapstructure:"legacy_account_id"`
	SignatureHeader string `mapstructure:"signature_header"`
}

type ReportsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type RecorderConfig struct {
	Workers   int           `mapstructure:"workers"`
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (LBLGW_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (LBLGW_*)
	v.SetEnvPrefix("LBLGW")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Model       ModelConfig      `mapstructure:"model"`
	Explain     ExplainConfig    `mapstructure:"explain"`
	Batch       BatchConfig      `mapstructure:"batch"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ModelConfig describes the frozen classifier artifact and how its raw
// probability is discretized into risk levels.
type ModelConfig struct {
	Path           string  `mapstructure:"path"`
	RiskLowCutoff  float64 `mapstructure:"risk_low_cutoff"`
	RiskHighCutoff float64 `mapstructure:"risk_high_cutoff"`
	ResultCacheTTL string  `mapstructure:"result_cache_ttl"`
}

// ExplainConfig controls the attribution decomposition.
type ExplainConfig struct {
	BackgroundSampleSize int   `mapstructure:"background_sample_size"`
	Permutations         int   `mapstructure:"permutations"`
	Seed                 int64 `mapstructure:"seed"`
}

type BatchConfig struct {
	Workers     int      `mapstructure:"workers"`
	SegmentKeys []string `mapstructure:"segment_keys"`
	MaxRows     int      `mapstructure:"max_rows"`
}

type MonitoringConfig struct {
	WindowDays           int     `mapstructure:"window_days"`
	PerformanceAttention float64 `mapstructure:"performance_attention"`
	PerformanceCritical  float64 `mapstructure:"performance_critical"`
	DriftAttention       float64 `mapstructure:"drift_attention"`
	DriftCritical        float64 `mapstructure:"drift_critical"`
	HighRiskThreshold    int     `mapstructure:"high_risk_threshold"`
	MinDailyVolume       int     `mapstructure:"min_daily_volume"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRate     float64 `mapstructure:"sample_rate"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   int64  `mapstructure:"chat_id"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}
	if err := viper.BindEnv("model.path", "MODEL_PATH"); err != nil {
		return nil, fmt.Errorf("failed to bind MODEL_PATH environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	if c.Model.RiskLowCutoff <= 0 || c.Model.RiskHighCutoff >= 1 {
		return fmt.Errorf("risk cutoffs must lie strictly inside (0, 1), got %.2f/%.2f",
			c.Model.RiskLowCutoff, c.Model.RiskHighCutoff)
	}
	if c.Model.RiskLowCutoff >= c.Model.RiskHighCutoff {
		return fmt.Errorf("risk_low_cutoff %.2f must be below risk_high_cutoff %.2f",
			c.Model.RiskLowCutoff, c.Model.RiskHighCutoff)
	}
	if c.Model.ResultCacheTTL != "" {
		if _, err := time.ParseDuration(c.Model.ResultCacheTTL); err != nil {
			return fmt.Errorf("invalid result cache TTL: %w", err)
		}
	}
	if c.Monitoring.PerformanceCritical > c.Monitoring.PerformanceAttention {
		return fmt.Errorf("performance_critical %.2f must not exceed performance_attention %.2f",
			c.Monitoring.PerformanceCritical, c.Monitoring.PerformanceAttention)
	}
	if c.Monitoring.DriftAttention > c.Monitoring.DriftCritical {
		return fmt.Errorf("drift_attention %.2f must not exceed drift_critical %.2f",
			c.Monitoring.DriftAttention, c.Monitoring.DriftCritical)
	}
	if c.Explain.Permutations < 1 {
		return fmt.Errorf("explain.permutations must be at least 1, got %d", c.Explain.Permutations)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "churnguard")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Model
	viper.SetDefault("model.path", "./models/churn_forest.json")
	viper.SetDefault("model.risk_low_cutoff", 0.30)
	viper.SetDefault("model.risk_high_cutoff", 0.70)
	viper.SetDefault("model.result_cache_ttl", "1h")

	// Explain
	viper.SetDefault("explain.background_sample_size", 100)
	viper.SetDefault("explain.permutations", 8)
	viper.SetDefault("explain.seed", 42)

	// Batch
	viper.SetDefault("batch.workers", 0) // 0 = sized from system resources
	viper.SetDefault("batch.segment_keys", []string{"country", "tier"})
	viper.SetDefault("batch.max_rows", 50000)

	// Monitoring
	viper.SetDefault("monitoring.window_days", 30)
	viper.SetDefault("monitoring.performance_attention", 0.80)
	viper.SetDefault("monitoring.performance_critical", 0.75)
	viper.SetDefault("monitoring.drift_attention", 0.10)
	viper.SetDefault("monitoring.drift_critical", 0.25)
	viper.SetDefault("monitoring.high_risk_threshold", 25)
	viper.SetDefault("monitoring.min_daily_volume", 20)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	viper.SetDefault("telemetry.service_name", "churnguard")
	viper.SetDefault("telemetry.service_version", "1.0.0")
	viper.SetDefault("telemetry.sample_rate", 0.2)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)
}

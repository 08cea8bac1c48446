package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds the lease store connection settings. An empty URL with no
// sentinels means leases are kept in process.
type RedisConfig struct {
	URL           string
	SentinelAddrs []string
	MasterName    string
	Password      string
}

// Enabled reports whether a Redis endpoint was configured
func (c RedisConfig) Enabled() bool {
	return c.URL != "" || len(c.SentinelAddrs) > 0
}

// KafkaConfig holds event publishing configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ImportConfig holds bulk ingestion tuning
type ImportConfig struct {
	BatchSize           int
	ProgressEvery       int
	Charset             string
	PartnerPolicy       string
	MaxReportedFailures int
}

// EnrichmentConfig holds the read-through cache settings
type EnrichmentConfig struct {
	ProviderURL     string
	ProviderTimeout time.Duration
	Freshness       time.Duration
	LeaseTTL        time.Duration
	LeaseWait       time.Duration
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix         string
	PushgatewayURL string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Import      ImportConfig
	Enrichment  EnrichmentConfig
	Server      ServerConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Partner load policies
const (
	PartnerPolicyAppend  = "append"
	PartnerPolicyReplace = "replace"
)

// StartupConfigError lists required settings that are missing or invalid.
// Nothing may run when Load or Validate reports one.
type StartupConfigError struct {
	Missing []string
	Invalid []string
}

func (e *StartupConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Load loads configuration from the environment, reading .env first if present
func Load(serviceName string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Redis: RedisConfig{
			URL:           getEnv("REDIS_URL", ""),
			SentinelAddrs: getEnvAsList("REDIS_SENTINEL_ADDRS"),
			MasterName:    getEnv("REDIS_MASTER_NAME", "mymaster"),
			Password:      getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "cnpj.company-enriched"),
		},
		Import: ImportConfig{
			BatchSize:           getEnvAsInt("IMPORT_BATCH_SIZE", 1000),
			ProgressEvery:       getEnvAsInt("IMPORT_PROGRESS_EVERY", 100000),
			Charset:             getEnv("IMPORT_CHARSET", "latin1"),
			PartnerPolicy:       getEnv("IMPORT_PARTNER_POLICY", PartnerPolicyAppend),
			MaxReportedFailures: getEnvAsInt("IMPORT_MAX_REPORTED_FAILURES", 1000),
		},
		Enrichment: EnrichmentConfig{
			ProviderURL:     getEnv("ENRICHMENT_PROVIDER_URL", "https://minhareceita.org/"),
			ProviderTimeout: getEnvAsDuration("ENRICHMENT_PROVIDER_TIMEOUT", 15*time.Second),
			Freshness:       getEnvAsDuration("ENRICHMENT_FRESHNESS", 7*24*time.Hour),
			LeaseTTL:        getEnvAsDuration("ENRICHMENT_LEASE_TTL", 30*time.Second),
			LeaseWait:       getEnvAsDuration("ENRICHMENT_LEASE_WAIT", 20*time.Second),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix:         getEnv("METRICS_PREFIX", "cnpjsync"),
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required settings. It returns a *StartupConfigError.
func (c *Config) Validate() error {
	cfgErr := &StartupConfigError{}

	if c.DB.URL == "" {
		if c.DB.Host == "" {
			cfgErr.Missing = append(cfgErr.Missing, "DB_HOST")
		}
		if c.DB.User == "" {
			cfgErr.Missing = append(cfgErr.Missing, "DB_USER")
		}
		if c.DB.DBName == "" {
			cfgErr.Missing = append(cfgErr.Missing, "DB_NAME")
		}
	}
	if c.Import.BatchSize <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "IMPORT_BATCH_SIZE must be positive")
	}
	if c.Import.ProgressEvery <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "IMPORT_PROGRESS_EVERY must be positive")
	}
	switch c.Import.PartnerPolicy {
	case PartnerPolicyAppend, PartnerPolicyReplace:
	default:
		cfgErr.Invalid = append(cfgErr.Invalid, "IMPORT_PARTNER_POLICY must be append or replace")
	}
	switch strings.ToLower(c.Import.Charset) {
	case "latin1", "iso-8859-1", "utf8", "utf-8":
	default:
		cfgErr.Invalid = append(cfgErr.Invalid, "IMPORT_CHARSET must be latin1 or utf8")
	}
	if c.Enrichment.Freshness <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "ENRICHMENT_FRESHNESS must be positive")
	}
	if c.Enrichment.LeaseWait <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "ENRICHMENT_LEASE_WAIT must be positive")
	}
	// a lease must outlive the provider call it guards
	if c.Enrichment.LeaseTTL <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "ENRICHMENT_LEASE_TTL must be positive")
	} else if c.Enrichment.LeaseTTL <= c.Enrichment.ProviderTimeout {
		cfgErr.Invalid = append(cfgErr.Invalid, "ENRICHMENT_LEASE_TTL must exceed ENRICHMENT_PROVIDER_TIMEOUT")
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return cfgErr
	}
	return nil
}

// LogFields returns the configuration as zap fields, without credentials
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_name", c.DB.DBName),
		zap.Bool("db_url_set", c.DB.URL != ""),
		zap.Bool("redis_enabled", c.Redis.Enabled()),
		zap.Strings("kafka_brokers", c.Kafka.Brokers),
		zap.Int("batch_size", c.Import.BatchSize),
		zap.String("partner_policy", c.Import.PartnerPolicy),
		zap.Duration("enrichment_freshness", c.Enrichment.Freshness),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}

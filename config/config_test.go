package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoad_MissingDatabaseSettingsIsStartupError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	cfg, err := Load("cnpjsync")
	require.Error(t, err)
	assert.Nil(t, cfg)

	var cfgErr *StartupConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.ElementsMatch(t, []string{"DB_HOST", "DB_USER", "DB_NAME"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoad_DatabaseURLSatisfiesRequirement(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/cnpj?sslmode=disable")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	cfg, err := Load("cnpjsync")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/cnpj?sslmode=disable", cfg.DB.GetDSN())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "loader")
	t.Setenv("DB_NAME", "cnpj")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("ENRICHMENT_FRESHNESS", "48h")
	t.Setenv("DB_LOG_LEVEL", "silent")

	cfg, err := Load("cnpjsync")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, PartnerPolicyAppend, cfg.Import.PartnerPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 48*time.Hour, cfg.Enrichment.Freshness)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "host=db port=5432 user=loader password= dbname=cnpj sslmode=disable", cfg.DB.GetDSN())
}

func TestValidate_RejectsBadTuning(t *testing.T) {
	cfg := &Config{
		DB:         DBConfig{URL: "postgres://x"},
		Import:     ImportConfig{BatchSize: 0, ProgressEvery: 10, Charset: "ebcdic", PartnerPolicy: "dedupe"},
		Enrichment: EnrichmentConfig{Freshness: time.Hour, ProviderTimeout: time.Second, LeaseTTL: time.Minute, LeaseWait: time.Second},
	}

	err := cfg.Validate()
	var cfgErr *StartupConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, cfgErr.Missing)
	assert.Len(t, cfgErr.Invalid, 3)
}

func TestValidate_LeaseSettings(t *testing.T) {
	base := func() *Config {
		return &Config{
			DB:     DBConfig{URL: "postgres://x"},
			Import: ImportConfig{BatchSize: 10, ProgressEvery: 10, Charset: "latin1", PartnerPolicy: PartnerPolicyAppend},
			Enrichment: EnrichmentConfig{
				Freshness:       time.Hour,
				ProviderTimeout: 15 * time.Second,
				LeaseTTL:        30 * time.Second,
				LeaseWait:       20 * time.Second,
			},
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"zero ttl", func(c *Config) { c.Enrichment.LeaseTTL = 0 }, "ENRICHMENT_LEASE_TTL must be positive"},
		{"ttl below provider timeout", func(c *Config) { c.Enrichment.LeaseTTL = 10 * time.Second }, "ENRICHMENT_LEASE_TTL must exceed ENRICHMENT_PROVIDER_TIMEOUT"},
		{"ttl equal to provider timeout", func(c *Config) { c.Enrichment.LeaseTTL = 15 * time.Second }, "ENRICHMENT_LEASE_TTL must exceed ENRICHMENT_PROVIDER_TIMEOUT"},
		{"zero wait", func(c *Config) { c.Enrichment.LeaseWait = 0 }, "ENRICHMENT_LEASE_WAIT must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.modify(cfg)

			var cfgErr *StartupConfigError
			require.True(t, errors.As(cfg.Validate(), &cfgErr))
			assert.Equal(t, []string{tt.want}, cfgErr.Invalid)
		})
	}
}

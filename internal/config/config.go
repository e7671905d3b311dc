package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Protocol ProtocolConfig  `mapstructure:"protocol"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Relayers []RelayerConfig `mapstructure:"relayers"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
	AdminKey      string `mapstructure:"admin_key"`
	AdminSecret   string `mapstructure:"admin_secret"`

	// When set, authorize requests must carry an ed25519 terminal signature
	RequireSignature bool `mapstructure:"require_signature"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	AuditListKey          string `mapstructure:"audit_list_key"`
	AuditListMax          int    `mapstructure:"audit_list_max"`
}

// ProtocolConfig seeds the on-ledger protocol state at first boot. Identity
// strings are opaque to the engine (base58 wallet addresses in production).
type ProtocolConfig struct {
	Authority           string `mapstructure:"authority"`
	Treasury            string `mapstructure:"treasury"`
	DefaultLTVBps       uint64 `mapstructure:"default_ltv_bps"`
	BaseInterestRateBps uint64 `mapstructure:"base_interest_rate_bps"`
	DefaultDailyLimit   uint64 `mapstructure:"default_daily_limit"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RelayerConfig struct {
	ID      string   `mapstructure:"id"`
	Name    string   `mapstructure:"name"`
	APIKey  string   `mapstructure:"api_key"`
	Signers []string `mapstructure:"signers"`
	QPS     float64  `mapstructure:"qps"`
	Burst   int      `mapstructure:"burst"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. VAULTGATE_PROTOCOL_AUTHORITY
	viper.SetEnvPrefix("vaultgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("auth.admin_secret", "")
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("redis.audit_list_key", "audit_logs")
	viper.SetDefault("redis.audit_list_max", 10000)
	viper.SetDefault("database.audit_retention_days", 30)
	viper.SetDefault("protocol.authority", "vaultgate-admin")
	viper.SetDefault("protocol.treasury", "vaultgate-treasury")
	viper.SetDefault("protocol.default_ltv_bps", 15000)
	viper.SetDefault("protocol.base_interest_rate_bps", 200)
	viper.SetDefault("protocol.default_daily_limit", 1000000000)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

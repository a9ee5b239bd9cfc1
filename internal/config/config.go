package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
)

const serviceName = "asset-syncer"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // e.g. "5m", "1h"
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // e.g. "10m"
}

// EthereumConfig holds chain and contract configuration
type EthereumConfig struct {
	// Endpoints are tried in order; ws(s) endpoints enable push subscriptions
	Endpoints       []string     `mapstructure:"endpoints"`
	ChainID         domain.Chain `mapstructure:"chain_id"`
	AssetContract   string       `mapstructure:"asset_contract"`
	FactoryContract string       `mapstructure:"factory_contract"`
	// StartBlock overrides the persisted listener cursor when non-zero
	StartBlock uint64 `mapstructure:"start_block"`
	// DeployBlock is the block the asset contract was deployed at; no token predates it
	DeployBlock uint64 `mapstructure:"deploy_block"`
}

// GatewayConfig holds endpoint failover and log pagination settings
type GatewayConfig struct {
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ForcePolling   bool          `mapstructure:"force_polling"`
	LogRangeLimit  uint64        `mapstructure:"log_range_limit"`
	MinLogRange    uint64        `mapstructure:"min_log_range"`
	BlockHeadTTL   time.Duration `mapstructure:"block_head_ttl"`
}

// ListenerConfig holds event listener settings
type ListenerConfig struct {
	CursorSaveFreq       uint64        `mapstructure:"cursor_save_freq"`       // save cursor every N blocks
	CursorSaveDelay      time.Duration `mapstructure:"cursor_save_delay"`      // or every N seconds
	BlockTimeCacheSize   int           `mapstructure:"block_time_cache_size"`
	DispatchRetryTimeout time.Duration `mapstructure:"dispatch_retry_timeout"` // bound on retries of a transiently failing event
}

// RecoveryConfig holds cold-start recovery settings
type RecoveryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	ItemDelay time.Duration `mapstructure:"item_delay"`
}

// HoldersConfig holds holder discovery settings
type HoldersConfig struct {
	Concurrency       int    `mapstructure:"concurrency"`
	SearchChunkSize   uint64 `mapstructure:"search_chunk_size"`
	MaxLookbackBlocks uint64 `mapstructure:"max_lookback_blocks"`
}

// ReconcileConfig holds validation thresholds and the revenue sync cadence
type ReconcileConfig struct {
	// Tolerance is the allowed drift in whole tokens
	Tolerance float64 `mapstructure:"tolerance"`
	// NearZeroSupply is the supply in whole tokens below which a cached supply is implausible
	NearZeroSupply     float64       `mapstructure:"near_zero_supply"`
	RevenueSyncEnabled bool          `mapstructure:"revenue_sync_enabled"`
	SyncInterval       time.Duration `mapstructure:"sync_interval"`
}

// LedgerConfig holds idempotency ledger settings
type LedgerConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimiterConfig holds RPC rate limiter settings
type RateLimiterConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	RequestsPerSecond       int           `mapstructure:"requests_per_second"`
	Burst                   int           `mapstructure:"burst"`
	MaxQueueTime            time.Duration `mapstructure:"max_queue_time"`
	MaxWorkers              int           `mapstructure:"max_workers"`
	MaxQueueSize            int           `mapstructure:"max_queue_size"`
	RedisKeyPrefix          string        `mapstructure:"redis_key_prefix"`
	LocalFallbackMultiplier float64       `mapstructure:"local_fallback_multiplier"`
	Redis                   RedisConfig   `mapstructure:"redis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration for the operator endpoints
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// WorkerConfig holds per-asset worker pool configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// SyncerConfig holds configuration for asset-syncer
type SyncerConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Listener    ListenerConfig    `mapstructure:"listener"`
	Recovery    RecoveryConfig    `mapstructure:"recovery"`
	Holders     HoldersConfig     `mapstructure:"holders"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Worker      WorkerConfig      `mapstructure:"worker"`
}

// LoadSyncerConfig loads configuration for asset-syncer
func LoadSyncerConfig(configFile string, envPath string) (*SyncerConfig, error) {
	v := configureViper(serviceName, configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("gateway.probe_timeout", "5s")
	v.SetDefault("gateway.probe_interval", "15s")
	v.SetDefault("gateway.max_retries", 5)
	v.SetDefault("gateway.initial_backoff", "500ms")
	v.SetDefault("gateway.max_backoff", "10s")
	v.SetDefault("gateway.reconnect_delay", "5s")
	v.SetDefault("gateway.poll_interval", "12s")
	v.SetDefault("gateway.log_range_limit", 2000)
	v.SetDefault("gateway.min_log_range", 8)
	v.SetDefault("gateway.block_head_ttl", "4s")
	v.SetDefault("listener.cursor_save_freq", 10)
	v.SetDefault("listener.cursor_save_delay", "30s")
	v.SetDefault("listener.block_time_cache_size", 1024)
	v.SetDefault("listener.dispatch_retry_timeout", "2m")
	v.SetDefault("recovery.enabled", true)
	v.SetDefault("recovery.item_delay", "200ms")
	v.SetDefault("holders.concurrency", 8)
	v.SetDefault("holders.search_chunk_size", 50000)
	v.SetDefault("holders.max_lookback_blocks", 5000000)
	v.SetDefault("reconcile.tolerance", 0.000001)
	v.SetDefault("reconcile.near_zero_supply", 1)
	v.SetDefault("reconcile.revenue_sync_enabled", true)
	v.SetDefault("reconcile.sync_interval", "5m")
	v.SetDefault("ledger.cache_size", 10000)
	v.SetDefault("rate_limiter.enabled", false)
	v.SetDefault("rate_limiter.requests_per_second", 25)
	v.SetDefault("rate_limiter.max_queue_time", "2m")
	v.SetDefault("rate_limiter.local_fallback_multiplier", 0.5)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120) // repair walks every asset
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("worker.pool_size", 16)
	v.SetDefault("worker.queue_size", 4096)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg SyncerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that have no sensible default
func (c *SyncerConfig) Validate() error {
	if len(c.Ethereum.Endpoints) == 0 {
		return fmt.Errorf("invalid config: %w", domain.ErrNoEndpoints)
	}
	if !domain.IsValidChain(c.Ethereum.ChainID) {
		return fmt.Errorf("invalid config: unsupported chain %q", c.Ethereum.ChainID)
	}
	if c.Ethereum.AssetContract == "" {
		return errors.New("invalid config: ethereum.asset_contract is required")
	}
	if c.Gateway.MinLogRange > c.Gateway.LogRangeLimit {
		return errors.New("invalid config: gateway.min_log_range exceeds gateway.log_range_limit")
	}
	if c.Reconcile.Tolerance < 0 {
		return errors.New("invalid config: reconcile.tolerance must not be negative")
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("FF_ASSET_SYNCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds every key so env-only deployments unmarshal fully
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.endpoints",
		"ethereum.chain_id",
		"ethereum.asset_contract",
		"ethereum.factory_contract",
		"ethereum.start_block",
		"ethereum.deploy_block",
		// Gateway
		"gateway.probe_timeout",
		"gateway.probe_interval",
		"gateway.max_retries",
		"gateway.initial_backoff",
		"gateway.max_backoff",
		"gateway.reconnect_delay",
		"gateway.poll_interval",
		"gateway.force_polling",
		"gateway.log_range_limit",
		"gateway.min_log_range",
		"gateway.block_head_ttl",
		// Listener
		"listener.cursor_save_freq",
		"listener.cursor_save_delay",
		"listener.block_time_cache_size",
		"listener.dispatch_retry_timeout",
		// Recovery
		"recovery.enabled",
		"recovery.item_delay",
		// Holders
		"holders.concurrency",
		"holders.search_chunk_size",
		"holders.max_lookback_blocks",
		// Reconcile
		"reconcile.tolerance",
		"reconcile.near_zero_supply",
		"reconcile.revenue_sync_enabled",
		"reconcile.sync_interval",
		// Ledger
		"ledger.cache_size",
		// Rate limiter
		"rate_limiter.enabled",
		"rate_limiter.requests_per_second",
		"rate_limiter.burst",
		"rate_limiter.max_queue_time",
		"rate_limiter.max_workers",
		"rate_limiter.max_queue_size",
		"rate_limiter.redis_key_prefix",
		"rate_limiter.local_fallback_multiplier",
		"rate_limiter.redis.addr",
		"rate_limiter.redis.password",
		"rate_limiter.redis.db",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

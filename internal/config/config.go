package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/smartfill/smartfill/internal/crypto"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Profile store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Advice modes
const (
	AdviceRemote = "remote"
	AdviceLocal  = "local"
)

// Demo profile sources
const (
	SourceEmbedded = "embedded"
	SourceS3       = "s3"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Application
	App AppConfig

	// Server
	Server ServerConfig

	// Profile store
	Profile ProfileConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// S3/MinIO
	S3 S3Config

	// Advice endpoint
	Advice AdviceConfig

	// Page scanning
	Page PageConfig

	// Headless browser
	Browser BrowserConfig

	// Inbound messages
	Messaging MessagingConfig

	// Profile write audit
	Audit AuditConfig

	// Rate Limits
	RateLimits RateLimitConfig

	// Security
	Security SecurityConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" default:"smartfill"`
	Version string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int64         `envconfig:"SERVER_MAX_REQUEST_SIZE" default:"5242880"` // 5MB
}

// ProfileConfig selects and tunes the profile store
type ProfileConfig struct {
	Backend        string        `envconfig:"PROFILE_BACKEND" default:"memory"` // memory, redis, postgres
	ID             string        `envconfig:"PROFILE_ID" default:"default"`
	DemoSource     string        `envconfig:"PROFILE_DEMO_SOURCE" default:"embedded"` // embedded, s3
	DemoObject     string        `envconfig:"PROFILE_DEMO_OBJECT" default:"profile.json"`
	InitRetryDelay time.Duration `envconfig:"PROFILE_INIT_RETRY_DELAY" default:"2s"`
	EncryptionKey  string        `envconfig:"PROFILE_ENCRYPTION_KEY" default:""` // 32 bytes, base64 or raw
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"smartfill"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"smartfill"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// S3Config holds S3/MinIO settings
type S3Config struct {
	Endpoint        string `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID" default:"minioadmin"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY" default:"minioadmin"`
	Bucket          string `envconfig:"S3_BUCKET" default:"smartfill"`
	Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	UseSSL          bool   `envconfig:"S3_USE_SSL" default:"false"`
}

// AdviceConfig holds advice endpoint settings
type AdviceConfig struct {
	Mode               string        `envconfig:"ADVICE_MODE" default:"remote"` // remote, local
	URL                string        `envconfig:"ADVICE_URL" default:"http://localhost:8787"`
	Timeout            time.Duration `envconfig:"ADVICE_TIMEOUT" default:"30s"`
	RateLimitRPM       int           `envconfig:"ADVICE_RATE_LIMIT_RPM" default:"30"`
	SnippetLimit       int           `envconfig:"ADVICE_SNIPPET_LIMIT" default:"10000"`
	BreakerMaxFailures int           `envconfig:"ADVICE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"ADVICE_BREAKER_TIMEOUT" default:"30s"`
	CacheTTL           time.Duration `envconfig:"ADVICE_CACHE_TTL" default:"0s"` // 0 disables the cache
	CacheSize          int           `envconfig:"ADVICE_CACHE_SIZE" default:"256"`
}

// PageConfig holds page scanning settings
type PageConfig struct {
	TextLimit int `envconfig:"PAGE_TEXT_LIMIT" default:"60000"`
}

// BrowserConfig holds headless browser settings
type BrowserConfig struct {
	Headless      bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	Timeout       time.Duration `envconfig:"BROWSER_TIMEOUT" default:"30s"`
	ToastDuration time.Duration `envconfig:"BROWSER_TOAST_DURATION" default:"1800ms"`
}

// MessagingConfig holds inbound message settings
type MessagingConfig struct {
	Enabled bool   `envconfig:"MESSAGING_ENABLED" default:"false"`
	Channel string `envconfig:"MESSAGING_CHANNEL" default:"smartfill:messages"`
}

// AuditConfig holds profile audit settings. Auditing needs the postgres backend.
type AuditConfig struct {
	Enabled       bool          `envconfig:"AUDIT_ENABLED" default:"true"`
	BufferSize    int           `envconfig:"AUDIT_BUFFER_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"AUDIT_FLUSH_INTERVAL" default:"1s"`
	RetentionDays int           `envconfig:"AUDIT_RETENTION_DAYS" default:"90"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled        bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMin int  `envconfig:"RATE_LIMIT_REQUESTS_PER_MIN" default:"120"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	// CORS
	CORSEnabled        bool     `envconfig:"CORS_ENABLED" default:"true"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// TLS
	TLSEnabled  bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCertFile string `envconfig:"TLS_CERT_FILE" default:""`
	TLSKeyFile  string `envconfig:"TLS_KEY_FILE" default:""`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	switch c.Profile.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		errors = append(errors, fmt.Sprintf("PROFILE_BACKEND %q is not one of memory, redis, postgres", c.Profile.Backend))
	}

	switch c.Profile.DemoSource {
	case SourceEmbedded, SourceS3:
	default:
		errors = append(errors, fmt.Sprintf("PROFILE_DEMO_SOURCE %q is not one of embedded, s3", c.Profile.DemoSource))
	}

	if c.Profile.EncryptionKey != "" {
		if _, err := crypto.ParseKey(c.Profile.EncryptionKey); err != nil {
			errors = append(errors, "PROFILE_ENCRYPTION_KEY: "+err.Error())
		}
	}

	switch c.Advice.Mode {
	case AdviceLocal:
	case AdviceRemote:
		if c.Advice.URL == "" {
			errors = append(errors, "ADVICE_URL is required in remote mode")
		}
	default:
		errors = append(errors, fmt.Sprintf("ADVICE_MODE %q is not one of remote, local", c.Advice.Mode))
	}

	// Validate database in non-development mode
	if c.Env != EnvDevelopment && c.Profile.Backend == BackendPostgres {
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD is required in non-development mode")
		}
	}

	// Validate TLS in production
	if c.Env == EnvProduction {
		if c.Security.TLSEnabled && (c.Security.TLSCertFile == "" || c.Security.TLSKeyFile == "") {
			errors = append(errors, "TLS_CERT_FILE and TLS_KEY_FILE are required when TLS is enabled")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env: EnvDevelopment,
		Profile: ProfileConfig{
			Backend:    BackendMemory,
			DemoSource: SourceEmbedded,
		},
		Advice: AdviceConfig{
			Mode: AdviceRemote,
			URL:  "http://localhost:8787",
		},
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != expected {
		t.Errorf("DSN() = %v, want %v", got, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	if got := cfg.Addr(); got != "redis.example.com:6380" {
		t.Errorf("Addr() = %v, want redis.example.com:6380", got)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		env      Environment
		expected bool
	}{
		{
			name:     "development",
			env:      EnvDevelopment,
			expected: true,
		},
		{
			name:     "staging",
			env:      EnvStaging,
			expected: false,
		},
		{
			name:     "production",
			env:      EnvProduction,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.expected {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.expected)
			}
			if got := cfg.IsProduction(); got != (tt.env == EnvProduction) {
				t.Errorf("IsProduction() = %v", got)
			}
		})
	}
}

func TestConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		logLevel string
		expected string
	}{
		{
			name:     "debug mode overrides",
			debug:    true,
			logLevel: "info",
			expected: "debug",
		},
		{
			name:     "normal mode uses log level",
			debug:    false,
			logLevel: "warn",
			expected: "warn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Debug: tt.debug, LogLevel: tt.logLevel}
			if got := cfg.GetLogLevel(); got != tt.expected {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid development config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Profile.Backend = "etcd" },
			wantErr: true,
		},
		{
			name:    "unknown demo source",
			mutate:  func(c *Config) { c.Profile.DemoSource = "ftp" },
			wantErr: true,
		},
		{
			name:    "remote advice without url",
			mutate:  func(c *Config) { c.Advice.URL = "" },
			wantErr: true,
		},
		{
			name: "local advice without url",
			mutate: func(c *Config) {
				c.Advice.Mode = AdviceLocal
				c.Advice.URL = ""
			},
			wantErr: false,
		},
		{
			name:    "valid encryption key",
			mutate:  func(c *Config) { c.Profile.EncryptionKey = "12345678901234567890123456789012" },
			wantErr: false,
		},
		{
			name:    "short encryption key",
			mutate:  func(c *Config) { c.Profile.EncryptionKey = "too-short" },
			wantErr: true,
		},
		{
			name:    "unknown advice mode",
			mutate:  func(c *Config) { c.Advice.Mode = "llm" },
			wantErr: true,
		},
		{
			name: "staging postgres without db password",
			mutate: func(c *Config) {
				c.Env = EnvStaging
				c.Profile.Backend = BackendPostgres
			},
			wantErr: true,
		},
		{
			name: "staging redis without db password",
			mutate: func(c *Config) {
				c.Env = EnvStaging
				c.Profile.Backend = BackendRedis
			},
			wantErr: false,
		},
		{
			name: "production with TLS but no cert",
			mutate: func(c *Config) {
				c.Env = EnvProduction
				c.Security.TLSEnabled = true
			},
			wantErr: true,
		},
		{
			name: "production with proper TLS",
			mutate: func(c *Config) {
				c.Env = EnvProduction
				c.Security = SecurityConfig{
					TLSEnabled:  true,
					TLSCertFile: "/path/to/cert",
					TLSKeyFile:  "/path/to/key",
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Profile.Backend != BackendMemory {
		t.Errorf("Profile.Backend = %v, want memory", cfg.Profile.Backend)
	}
	if cfg.Advice.URL != "http://localhost:8787" {
		t.Errorf("Advice.URL = %v, want http://localhost:8787", cfg.Advice.URL)
	}
	if cfg.Advice.SnippetLimit != 10000 {
		t.Errorf("Advice.SnippetLimit = %d, want 10000", cfg.Advice.SnippetLimit)
	}
	if cfg.Page.TextLimit != 60000 {
		t.Errorf("Page.TextLimit = %d, want 60000", cfg.Page.TextLimit)
	}
	if cfg.Advice.CacheTTL != 0 {
		t.Errorf("Advice.CacheTTL = %v, want 0", cfg.Advice.CacheTTL)
	}
	if cfg.Browser.ToastDuration != 1800*time.Millisecond {
		t.Errorf("Browser.ToastDuration = %v, want 1.8s", cfg.Browser.ToastDuration)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PROFILE_BACKEND", "redis")
	t.Setenv("ADVICE_MODE", "local")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost,https://example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Profile.Backend != BackendRedis {
		t.Errorf("Profile.Backend = %v, want redis", cfg.Profile.Backend)
	}
	if cfg.Advice.Mode != AdviceLocal {
		t.Errorf("Advice.Mode = %v, want local", cfg.Advice.Mode)
	}
	if len(cfg.Security.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins len = %d, want 2", len(cfg.Security.CORSAllowedOrigins))
	}
}

func TestEnvironmentConstants(t *testing.T) {
	if EnvDevelopment != "development" {
		t.Errorf("EnvDevelopment = %v, want development", EnvDevelopment)
	}
	if EnvStaging != "staging" {
		t.Errorf("EnvStaging = %v, want staging", EnvStaging)
	}
	if EnvProduction != "production" {
		t.Errorf("EnvProduction = %v, want production", EnvProduction)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smartfill/smartfill/internal/advice"
	"github.com/smartfill/smartfill/internal/api"
	"github.com/smartfill/smartfill/internal/api/middleware"
	"github.com/smartfill/smartfill/internal/audit"
	"github.com/smartfill/smartfill/internal/autofill"
	"github.com/smartfill/smartfill/internal/config"
	"github.com/smartfill/smartfill/internal/crypto"
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/learning"
	"github.com/smartfill/smartfill/internal/messaging"
	"github.com/smartfill/smartfill/internal/observability"
	"github.com/smartfill/smartfill/internal/panel"
	"github.com/smartfill/smartfill/internal/profile"
	"github.com/smartfill/smartfill/internal/repository/memory"
	"github.com/smartfill/smartfill/internal/repository/postgres"
	rediscache "github.com/smartfill/smartfill/internal/repository/redis"
	"github.com/smartfill/smartfill/internal/resilience"
	"github.com/smartfill/smartfill/internal/storage"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(string(cfg.Env), cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting SmartFill API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
		zap.String("profile_backend", cfg.Profile.Backend),
		zap.String("advice_mode", cfg.Advice.Mode),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metrics := observability.NewMetrics("smartfill", nil)
	checks := make(map[string]api.HealthCheck)

	// Connect to Redis (optional unless it backs the profile)
	var cache *rediscache.Cache
	cache, err = rediscache.New(cfg.Redis)
	if err != nil {
		if cfg.Profile.Backend == config.BackendRedis {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		logger.Warn("Failed to connect to Redis, rate limiting and messaging disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
		checks["redis"] = cache.Health
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	// Profile store
	var (
		kv       profile.KV
		auditLog *audit.Logger
	)
	switch cfg.Profile.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Connected to PostgreSQL",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
		)
		checks["database"] = db.Health
		go reportDBStats(ctx, db, metrics)
		kv = postgres.NewProfileRepository(db, cfg.Profile.ID)
		if cfg.Audit.Enabled {
			auditLog = audit.NewLogger(db.DB, audit.LoggerConfig{
				BufferSize:    cfg.Audit.BufferSize,
				FlushInterval: cfg.Audit.FlushInterval,
				RetentionDays: cfg.Audit.RetentionDays,
			}, logger.Named("audit"))
			defer auditLog.Close()
			if n, err := auditLog.Prune(ctx); err != nil {
				logger.Warn("Failed to prune audit log", zap.Error(err))
			} else if n > 0 {
				logger.Info("Pruned audit log", zap.Int64("entries", n))
			}
		}
	case config.BackendRedis:
		kv = cache.Profiles(cfg.Profile.ID)
	default:
		kv = memory.New()
	}

	if cfg.Profile.EncryptionKey != "" {
		key, err := crypto.ParseKey(cfg.Profile.EncryptionKey)
		if err != nil {
			logger.Fatal("Invalid profile encryption key", zap.Error(err))
		}
		sealed, err := crypto.NewSealedStore(kv, key, domain.SensitiveKeys()...)
		if err != nil {
			logger.Fatal("Failed to enable profile encryption", zap.Error(err))
		}
		kv = sealed
		logger.Info("Profile encryption enabled")
	} else if cfg.IsProduction() && cfg.Profile.Backend != config.BackendMemory {
		logger.Warn("Profile stored without encryption; set PROFILE_ENCRYPTION_KEY")
	}

	if auditLog != nil {
		kv = audit.NewStore(kv, auditLog, cfg.Profile.ID)
	}

	// Demo profile source
	var demo profile.Source = profile.EmbeddedSource{}
	if cfg.Profile.DemoSource == config.SourceS3 {
		client, err := storage.NewMinIOClient(cfg.S3)
		if err != nil {
			logger.Fatal("Failed to create object storage client", zap.Error(err))
		}
		checks["storage"] = client.Health
		demo = storage.NewObjectSource(client, cfg.Profile.DemoObject)
		logger.Info("Loading demo profile from object storage",
			zap.String("bucket", client.Bucket()),
			zap.String("object", cfg.Profile.DemoObject),
		)
	}

	profiles := profile.NewService(kv, metrics, logger)
	bootCtx, cancelBoot := context.WithTimeout(ctx, 30*time.Second)
	profiles.Bootstrap(bootCtx, demo, cfg.Profile.InitRetryDelay)
	cancelBoot()

	// Advice
	var (
		advisor advice.Advisor
		breaker *resilience.Breaker
	)
	mode := panel.ModeLocal
	if cfg.Advice.Mode == config.AdviceRemote {
		client := advice.NewClient(advice.Config{
			BaseURL:      cfg.Advice.URL,
			Timeout:      cfg.Advice.Timeout,
			RateLimitRPM: cfg.Advice.RateLimitRPM,
			SnippetLimit: cfg.Advice.SnippetLimit,
			MaxFailures:  cfg.Advice.BreakerMaxFailures,
			BreakerReset: cfg.Advice.BreakerTimeout,
		}, logger)
		advisor = client
		breaker = client.Breaker()
		if cfg.Advice.CacheTTL > 0 {
			var rdb *redis.Client
			if cache != nil {
				rdb = cache.Client()
			}
			advisor = advice.NewCached(client, rdb, advice.CacheConfig{
				TTL:        cfg.Advice.CacheTTL,
				MaxEntries: cfg.Advice.CacheSize,
			}, logger)
			logger.Info("Advice cache enabled", zap.Duration("ttl", cfg.Advice.CacheTTL))
		}
		mode = panel.ModeRemote
	}

	p := panel.New(panel.Config{Mode: mode, SnippetLimit: cfg.Advice.SnippetLimit}, advisor, profiles, metrics, logger)
	learner := learning.NewLearner(profiles, nil, metrics, logger)
	dispatcher := messaging.NewDispatcher(logger)

	// Create router
	routerCfg := api.RouterConfig{
		Profiles:       profiles,
		DemoSource:     demo,
		Panel:          p,
		Filler:         autofill.NewFiller(logger),
		Learner:        learner,
		Dispatcher:     dispatcher,
		Checks:         checks,
		Breaker:        breaker,
		Limiter:        limiterOrNil(cache, cfg.RateLimits.Enabled),
		RateLimit:      cfg.RateLimits.RequestsPerMin,
		Metrics:        metrics,
		Logger:         logger,
		EnableCORS:     cfg.Security.CORSEnabled,
		CORSOrigins:    cfg.Security.CORSAllowedOrigins,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		PageTextLimit:  cfg.Page.TextLimit,
		RequestTimeout: cfg.Server.WriteTimeout,
		ProfileID:      cfg.Profile.ID,
	}
	if auditLog != nil {
		routerCfg.History = auditLog
	}
	router := api.NewRouter(routerCfg)

	dispatcher.Register(messaging.TypeTestAutofill, func(ctx context.Context, _ messaging.Message) error {
		_, err := router.Pages.AutofillCurrent(ctx)
		return err
	})

	// Inbound messages over Redis pub/sub
	if cfg.Messaging.Enabled && cache != nil {
		sub := cache.Subscribe(ctx, cfg.Messaging.Channel)
		defer sub.Close()
		go dispatcher.Listen(ctx, sub.Channel())
		logger.Info("Listening for messages", zap.String("channel", cfg.Messaging.Channel))
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening",
			zap.String("addr", addr),
			zap.Bool("tls", cfg.Security.TLSEnabled),
		)
		if cfg.Security.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		stop()

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

// limiterOrNil keeps a nil *Cache from becoming a non-nil interface
func limiterOrNil(cache *rediscache.Cache, enabled bool) middleware.Limiter {
	if cache == nil || !enabled {
		return nil
	}
	return cache
}

// reportDBStats publishes connection pool gauges until ctx is done
func reportDBStats(ctx context.Context, db *postgres.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.RecordDBStats(db.Stats())
		}
	}
}

// initLogger creates a configured zap logger
func initLogger(env, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		// Fall back to basic logger
		logger, _ = zap.NewProduction()
	}

	return logger
}

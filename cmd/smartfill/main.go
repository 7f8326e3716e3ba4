package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/advice"
	"github.com/smartfill/smartfill/internal/autofill"
	"github.com/smartfill/smartfill/internal/browser"
	"github.com/smartfill/smartfill/internal/config"
	"github.com/smartfill/smartfill/internal/crypto"
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/learning"
	"github.com/smartfill/smartfill/internal/messaging"
	"github.com/smartfill/smartfill/internal/panel"
	"github.com/smartfill/smartfill/internal/profile"
	"github.com/smartfill/smartfill/internal/repository/memory"
	"github.com/smartfill/smartfill/internal/repository/postgres"
	rediscache "github.com/smartfill/smartfill/internal/repository/redis"
	"github.com/smartfill/smartfill/internal/storage"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	targetURL := flag.String("url", "", "Page to open")
	question := flag.String("ask", "", "Question to ask about the page")
	fill := flag.Bool("autofill", false, "Fill matching form fields from the profile")
	watch := flag.Bool("watch", false, "Keep the page open and learn from what you type")
	local := flag.Bool("local", false, "Use local heuristics instead of the advice endpoint")
	headed := flag.Bool("headed", false, "Show the browser window")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if *targetURL == "" {
		red.Println("❌ -url is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		red.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *local {
		cfg.Advice.Mode = config.AdviceLocal
	}
	if *headed {
		cfg.Browser.Headless = false
	}

	// Setup logger
	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"/dev/null"}
		logger, _ = zcfg.Build()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cyan.Println("SmartFill agent")
	fmt.Printf("🎯 Target: %s\n", *targetURL)
	dim.Printf("   profile: %s, advice: %s\n", cfg.Profile.Backend, cfg.Advice.Mode)

	// Profile
	kv, cache, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		red.Printf("❌ Failed to open profile store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()
	if kv, err = seal(kv, cfg); err != nil {
		red.Printf("❌ Failed to enable profile encryption: %v\n", err)
		os.Exit(1)
	}

	demo, err := demoSource(cfg)
	if err != nil {
		red.Printf("❌ Failed to open object storage: %v\n", err)
		os.Exit(1)
	}
	profiles := profile.NewService(kv, nil, logger)
	profiles.Bootstrap(ctx, demo, cfg.Profile.InitRetryDelay)

	// Browser
	printStep(1, "Browser", "Launching Chromium")
	session, err := withSpinner("   Opening page...", func() (*browser.Session, error) {
		s, err := browser.Launch(cfg.Browser, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Open(ctx, *targetURL); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		red.Printf("   ❌ %v\n", err)
		os.Exit(1)
	}
	defer session.Close()
	green.Printf("   ✓ Opened %s\n", session.URL())

	// Panel
	var advisor advice.Advisor
	mode := panel.ModeLocal
	if cfg.Advice.Mode == config.AdviceRemote {
		advisor = advice.NewClient(advice.Config{
			BaseURL:      cfg.Advice.URL,
			Timeout:      cfg.Advice.Timeout,
			RateLimitRPM: cfg.Advice.RateLimitRPM,
			SnippetLimit: cfg.Advice.SnippetLimit,
			MaxFailures:  cfg.Advice.BreakerMaxFailures,
			BreakerReset: cfg.Advice.BreakerTimeout,
		}, logger)
		if cfg.Advice.CacheTTL > 0 {
			var rdb *redis.Client
			if cache != nil {
				rdb = cache.Client()
			}
			advisor = advice.NewCached(advisor, rdb, advice.CacheConfig{
				TTL:        cfg.Advice.CacheTTL,
				MaxEntries: cfg.Advice.CacheSize,
			}, logger)
		}
		mode = panel.ModeRemote
	}
	p := panel.New(panel.Config{Mode: mode, SnippetLimit: cfg.Advice.SnippetLimit}, advisor, profiles, nil, logger)

	printStep(2, "Analysis", "Classifying the page")
	text, err := session.VisibleText(ctx, cfg.Page.TextLimit)
	if err != nil {
		red.Printf("   ❌ Failed to read page text: %v\n", err)
		os.Exit(1)
	}
	snap, err := withSpinner("   "+panel.SummaryScanning, func() (panel.Snapshot, error) {
		return p.Analyze(ctx, session.URL(), text)
	})
	if err != nil {
		red.Printf("   ❌ %v\n", err)
	}
	printSnapshot(snap)

	if strings.TrimSpace(*question) != "" {
		printStep(3, "Question", *question)
		snap, err = withSpinner("   "+panel.AnswerThinking, func() (panel.Snapshot, error) {
			return p.Ask(ctx, session.URL(), *question, text)
		})
		if err != nil {
			red.Printf("   ❌ %v\n", err)
		}
		printSnapshot(snap)
	}

	filler := autofill.NewFiller(logger)
	runAutofill := func(ctx context.Context) error {
		prof, err := profiles.Load(ctx)
		if err != nil {
			return err
		}
		controls, err := session.Controls(ctx)
		if err != nil {
			return err
		}
		targets := make([]autofill.Control, len(controls))
		for i, c := range controls {
			targets[i] = c
		}
		result, err := filler.Fill(ctx, prof, targets)
		if err != nil {
			return err
		}
		session.Notify(ctx, result.Message())
		green.Printf("   ✓ %s %s\n", result.Message(), dim.Sprint(strings.Join(result.Keys, ", ")))
		return nil
	}

	if *fill {
		printStep(4, "Autofill", "Writing profile values into the form")
		if err := runAutofill(ctx); err != nil {
			red.Printf("   ❌ Autofill failed: %v\n", err)
		}
	}

	if !*watch {
		return
	}

	printStep(5, "Learning", "Type into the page; values are saved as you go (Ctrl-C to stop)")
	learner := learning.NewLearner(profiles, session, nil, logger)
	err = session.Capture(ctx, func(ctx context.Context, obs learning.Observation) {
		out := learner.Observe(ctx, obs.Event())
		switch {
		case out.Saved:
			green.Printf("   ✓ %s\n", learning.SavedNotice(out.Key))
		case out.Reason == learning.ReasonInvalid || out.Reason == learning.ReasonStoreFailed:
			yellow.Printf("   ⚠ %s not saved (%s)\n", out.Key, out.Reason)
		}
	})
	if err != nil {
		red.Printf("   ❌ %v\n", err)
		os.Exit(1)
	}

	if cfg.Messaging.Enabled && cache != nil {
		dispatcher := messaging.NewDispatcher(logger)
		dispatcher.Register(messaging.TypeTestAutofill, func(ctx context.Context, _ messaging.Message) error {
			return runAutofill(ctx)
		})
		sub := cache.Subscribe(ctx, cfg.Messaging.Channel)
		defer sub.Close()
		go dispatcher.Listen(ctx, sub.Channel())
		dim.Printf("   listening for messages on %s\n", cfg.Messaging.Channel)
	}

	<-ctx.Done()
	fmt.Println()
	bold.Println("Stopped.")
}

// openStore opens the configured profile backend. The returned cache is
// non-nil whenever Redis is reachable.
func openStore(ctx context.Context, cfg *config.Config) (profile.KV, *rediscache.Cache, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var cache *rediscache.Cache
	if cfg.Profile.Backend == config.BackendRedis || cfg.Messaging.Enabled {
		c, err := rediscache.New(cfg.Redis)
		if err != nil && cfg.Profile.Backend == config.BackendRedis {
			return nil, nil, closeAll, err
		}
		if err == nil {
			cache = c
			closers = append(closers, func() { c.Close() })
		}
	}

	switch cfg.Profile.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(cfg.Database)
		if err != nil {
			closeAll()
			return nil, nil, func() {}, err
		}
		closers = append(closers, func() { db.Close() })
		if err := db.Migrate(ctx); err != nil {
			closeAll()
			return nil, nil, func() {}, err
		}
		return postgres.NewProfileRepository(db, cfg.Profile.ID), cache, closeAll, nil
	case config.BackendRedis:
		return cache.Profiles(cfg.Profile.ID), cache, closeAll, nil
	default:
		return memory.New(), cache, closeAll, nil
	}
}

// seal wraps kv with encryption of personal fields when a key is configured
func seal(kv profile.KV, cfg *config.Config) (profile.KV, error) {
	if cfg.Profile.EncryptionKey == "" {
		return kv, nil
	}
	key, err := crypto.ParseKey(cfg.Profile.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return crypto.NewSealedStore(kv, key, domain.SensitiveKeys()...)
}

func demoSource(cfg *config.Config) (profile.Source, error) {
	if cfg.Profile.DemoSource != config.SourceS3 {
		return profile.EmbeddedSource{}, nil
	}
	client, err := storage.NewMinIOClient(cfg.S3)
	if err != nil {
		return nil, err
	}
	return storage.NewObjectSource(client, cfg.Profile.DemoObject), nil
}

// withSpinner runs fn while an indeterminate progress bar spins
func withSpinner[T any](description string, fn func() (T, error)) (T, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				bar.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	v, err := fn()
	close(done)
	bar.Finish()
	return v, err
}

func printStep(num int, title, description string) {
	fmt.Println()
	bold.Printf("━━━ Step %d: %s ━━━\n", num, title)
	fmt.Printf("    %s\n", description)
}

func printSnapshot(s panel.Snapshot) {
	pill := s.Summary.Pill
	if pill == "" {
		pill = "General"
	}
	cyan.Printf("   [%s] ", pill)
	switch s.Summary.Tag {
	case domain.TagGood:
		green.Println(s.Summary.Main)
	case domain.TagWarn:
		yellow.Println(s.Summary.Main)
	default:
		bold.Println(s.Summary.Main)
	}
	if s.Summary.Sub != "" {
		dim.Printf("   %s\n", s.Summary.Sub)
	}
	if s.View != nil {
		fmt.Printf("   %s\n", s.View.Text())
	}
}

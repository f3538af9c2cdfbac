package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/advisor"
	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/feed"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
	"bilancio/internal/store"
	"bilancio/internal/theme"
)

// disabledGenerator stands in when no model API key is configured; every tip
// request then serves the fallback text.
type disabledGenerator struct{}

func (disabledGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("advisor disabled: no API key configured")
}

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Change feed: AMQP when configured, otherwise the in-process bus.
	var bus feed.Bus
	if cfg.AMQPURL != "" {
		amqpBus, err := feed.NewAMQPBus(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect change feed", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpBus.Close()
		bus = amqpBus
		logger.Info("Connected AMQP change feed", "exchange", cfg.AMQPExchange)
	} else {
		bus = feed.NewMemoryBus()
		logger.Info("Using in-process change feed")
	}

	st, err := store.Open(store.Backend(cfg.DataBackend), cfg.SQLiteDBPath, bus, logger.Logger)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer st.Close()

	sessions, err := session.NewManager(cfg.SessionSecret)
	if err != nil {
		logger.Error("Failed to init sessions", applog.FieldError, err)
		os.Exit(1)
	}

	var gen advisor.Generator = disabledGenerator{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := advisor.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to init advisor", applog.FieldError, err)
			os.Exit(1)
		}
		gen = gemini
	}
	adv := advisor.NewService(gen, cfg.TipCacheTTL)

	janitor := cache.NewJanitor()
	janitor.Register(adv.Cache())
	janitor.Start(10 * time.Minute)
	defer janitor.Stop()

	themeDir := cfg.ThemeDir
	if themeDir == "" {
		if themeDir, err = theme.DefaultDir(); err != nil {
			logger.Warn("No theme directory, using working dir", applog.FieldError, err)
			themeDir = "."
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, st, bus, sessions, adv, theme.NewStore(themeDir), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server",
			"port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

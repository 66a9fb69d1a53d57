// Package app wires configuration, sources, the pipeline and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/nrfinsight/internal/api"
	"github.com/deusflow/nrfinsight/internal/cache"
	"github.com/deusflow/nrfinsight/internal/config"
	"github.com/deusflow/nrfinsight/internal/dashboard"
	"github.com/deusflow/nrfinsight/internal/gemini"
	"github.com/deusflow/nrfinsight/internal/metrics"
	"github.com/deusflow/nrfinsight/internal/news"
	"github.com/deusflow/nrfinsight/internal/ratelimit"
	"github.com/deusflow/nrfinsight/internal/source"
	"github.com/deusflow/nrfinsight/internal/topic"
)

const (
	geminiBudgetWindow = 24 * time.Hour
	shutdownTimeout    = 10 * time.Second
)

type App struct {
	cfg       *config.Config
	log       *slog.Logger
	dashboard *dashboard.Service
	router    *gin.Engine
	sources   []string
	closers   []func()
}

// New builds every component. Sources without credentials are skipped.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	a := &App{cfg: cfg, log: log}

	registry, err := loadTopics(cfg)
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	client := source.NewHTTPClient(cfg.RequestTimeout)
	var adapters []source.Adapter

	var naver *source.Naver
	if cfg.NaverEnabled() {
		naver = source.NewNaver(cfg.NaverAPIURL, cfg.NaverClientID, cfg.NaverClientSecret, client)
		adapters = append(adapters, naver)
	} else {
		log.Info("naver credentials missing, source disabled")
	}

	feed := source.NewGoogleNews(cfg.GoogleNewsRSSURL, client)
	adapters = append(adapters, feed)

	stats := map[string]func() map[string]interface{}{}
	if cfg.GeminiEnabled() {
		gen, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, gen.Close)

		budget := ratelimit.NewBudget("gemini", cfg.MaxGeminiRequests, geminiBudgetWindow)
		stats["gemini_budget"] = budget.GetStats

		opts := source.GenerativeOptions{
			GroundingRunes: cfg.GroundingMaxRunes,
			Limiter:        budget,
			Timeout:        cfg.RequestTimeout,
			Logger:         log,
		}
		if cfg.GeminiGrounding {
			opts.Grounding = feed
		}
		adapters = append(adapters, source.NewGenerative(gen, opts))
	} else {
		log.Info("GEMINI_API_KEY missing, generative source disabled")
	}

	for _, s := range adapters {
		a.sources = append(a.sources, s.Name())
	}

	pipeline := news.NewPipeline(adapters, news.Options{
		Rules:       registry.Rules(),
		MaxArticles: cfg.MaxArticles,
		Metrics:     metrics.Global,
		Logger:      log,
	})
	a.dashboard = dashboard.New(registry, pipeline, store, metrics.Global, log)

	deps := api.Deps{
		Dashboard: a.dashboard,
		Feed:      feed,
		Metrics:   metrics.Global,
		Stats:     stats,
		Logger:    log,
	}
	// a nil *Naver inside the interface would register the route
	if naver != nil {
		deps.Naver = naver
	}
	a.router = api.NewRouter(deps)

	return a, nil
}

func loadTopics(cfg *config.Config) (*topic.Registry, error) {
	if cfg.TopicsConfigPath == "" {
		return topic.Default()
	}
	return topic.Load(cfg.TopicsConfigPath)
}

func (a *App) openStore(ctx context.Context) (cache.Store, error) {
	if a.cfg.RedisURL == "" {
		return cache.New(), nil
	}
	store, err := cache.NewRedis(ctx, a.cfg.RedisURL, a.cfg.CacheKeyPrefix)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			a.log.Warn("redis close failed", "error", err)
		}
	})
	a.log.Info("using redis tab cache", "prefix", a.cfg.CacheKeyPrefix)
	return store, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.router }

// Sources lists the registered adapter names in fan-out order.
func (a *App) Sources() []string { return append([]string(nil), a.sources...) }

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "port", a.cfg.Port, "sources", a.sources)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases the generative client and the Redis connection.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Package dashboard owns the per-topic result cache and decides when the
// aggregation pipeline runs: once per topic until a forced refresh.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/deusflow/nrfinsight/internal/article"
	"github.com/deusflow/nrfinsight/internal/cache"
	"github.com/deusflow/nrfinsight/internal/metrics"
	"github.com/deusflow/nrfinsight/internal/news"
	"github.com/deusflow/nrfinsight/internal/topic"
)

// ErrUnknownTopic is returned for ids missing from the registry.
var ErrUnknownTopic = errors.New("unknown topic")

// User-facing messages.
const (
	MessageFailed = "뉴스를 불러오지 못했습니다. 새로고침을 눌러 다시 시도해 주세요."
	MessageEmpty  = "관련된 최신 뉴스가 없습니다."
)

// Aggregator produces the article list for a query; *news.Pipeline satisfies it.
type Aggregator interface {
	Aggregate(ctx context.Context, query string) ([]article.Article, error)
}

// Result is what a tab renders.
type Result struct {
	Topic    topic.Config
	Articles []article.Article
	// Cached is true when the articles came from the cache.
	Cached bool
	// Err is set when the pipeline was exhausted; Articles is then empty.
	Err error
	// Message is a user-facing line for the failure or empty state.
	Message string
}

// TopicStatus reports whether a tab has been loaded.
type TopicStatus struct {
	topic.Config
	Loaded bool `json:"loaded"`
}

type Service struct {
	registry *topic.Registry
	pipeline Aggregator
	store    cache.Store
	metrics  *metrics.Metrics
	log      *slog.Logger

	inflight singleflight.Group
}

func New(registry *topic.Registry, pipeline Aggregator, store cache.Store, m *metrics.Metrics, log *slog.Logger) *Service {
	if store == nil {
		store = cache.New()
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{registry: registry, pipeline: pipeline, store: store, metrics: m, log: log}
}

// Status lists the tabs with their loaded flag.
func (s *Service) Status(ctx context.Context) ([]TopicStatus, error) {
	topics := s.registry.All()
	out := make([]TopicStatus, 0, len(topics))
	for _, t := range topics {
		_, ok, err := s.store.Get(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("status %s: %w", t.ID, err)
		}
		out = append(out, TopicStatus{Config: t, Loaded: ok})
	}
	return out, nil
}

// Load returns the cached list for a topic, running the pipeline on a miss.
// Exhaustion is reported in Result.Err, not as the returned error.
func (s *Service) Load(ctx context.Context, topicID string) (Result, error) {
	t, ok := s.registry.Get(topicID)
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", topicID, ErrUnknownTopic)
	}

	cached, hit, err := s.store.Get(ctx, topicID)
	if err != nil {
		// a broken cache should not hide the news
		s.log.Error("cache read failed", "topic", topicID, "error", err)
	}
	if hit {
		s.metrics.IncrementCacheHit()
		return result(t, cached, true, nil), nil
	}
	s.metrics.IncrementCacheMiss()

	return s.fetch(ctx, t)
}

// Refresh drops the cached entry and loads again.
func (s *Service) Refresh(ctx context.Context, topicID string) (Result, error) {
	t, ok := s.registry.Get(topicID)
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", topicID, ErrUnknownTopic)
	}
	s.metrics.IncrementForcedRefresh()
	if err := s.store.Delete(ctx, topicID); err != nil {
		s.log.Error("cache invalidation failed", "topic", topicID, "error", err)
	}
	return s.fetch(ctx, t)
}

type fetched struct {
	articles []article.Article
	err      error
}

// fetch collapses concurrent misses for one topic into a single pipeline run.
// The run is detached from ctx so a caller going away still leaves a filled cache.
func (s *Service) fetch(ctx context.Context, t topic.Config) (Result, error) {
	ch := s.inflight.DoChan(t.ID, func() (interface{}, error) {
		runCtx := context.WithoutCancel(ctx)
		articles, err := s.pipeline.Aggregate(runCtx, t.Query)
		if err != nil {
			return fetched{err: err}, nil
		}
		if err := s.store.Set(runCtx, t.ID, articles); err != nil {
			s.log.Error("cache write failed", "topic", t.ID, "error", err)
		}
		return fetched{articles: articles}, nil
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		f := res.Val.(fetched)
		if f.err != nil && !errors.Is(f.err, news.ErrExhausted) {
			return Result{}, f.err
		}
		return result(t, f.articles, false, f.err), nil
	}
}

func result(t topic.Config, articles []article.Article, cached bool, err error) Result {
	if articles == nil {
		articles = []article.Article{}
	}
	r := Result{Topic: t, Articles: articles, Cached: cached, Err: err}
	switch {
	case err != nil:
		r.Message = MessageFailed
	case len(articles) == 0:
		r.Message = MessageEmpty
	}
	return r
}

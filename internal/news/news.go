// Package news merges every configured source for one query into a single
// ordered, deduplicated article list.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/nrfinsight/internal/article"
	"github.com/deusflow/nrfinsight/internal/metrics"
	"github.com/deusflow/nrfinsight/internal/source"
	"github.com/deusflow/nrfinsight/internal/topic"
)

// ErrExhausted means no source produced a single item for the query.
var ErrExhausted = errors.New("no source returned any news")

// DefaultMaxArticles bounds a merged result.
const DefaultMaxArticles = 20

// Options configures a Pipeline. Zero values are usable.
type Options struct {
	// Rules are the query-triggered relevance filters.
	Rules []topic.Rule
	// MaxArticles caps the result; negative disables the cap, 0 means DefaultMaxArticles.
	MaxArticles int
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Pipeline is stateless; one value may serve concurrent calls for different topics.
type Pipeline struct {
	sources []source.Adapter
	rules   []topic.Rule
	max     int
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewPipeline(sources []source.Adapter, opts Options) *Pipeline {
	max := opts.MaxArticles
	if max == 0 {
		max = DefaultMaxArticles
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		sources: append([]source.Adapter(nil), sources...),
		rules:   opts.Rules,
		max:     max,
		metrics: m,
		log:     log,
	}
}

// Aggregate fans out to every source, then normalizes, filters, deduplicates
// and sorts newest first. It returns ErrExhausted only when every source came
// back empty or failed; partial failures are logged and absorbed.
func (p *Pipeline) Aggregate(ctx context.Context, query string) ([]article.Article, error) {
	startTime := time.Now()
	defer func() {
		p.metrics.RecordProcessingTime(time.Since(startTime))
	}()
	p.metrics.IncrementAggregations()

	raw := p.fanOut(ctx, query)

	total := 0
	for _, items := range raw {
		total += len(items)
	}
	if total == 0 {
		p.metrics.SetExhausted(query, ErrExhausted.Error())
		p.log.Warn("all sources empty", "query", query, "sources", len(p.sources))
		return []article.Article{}, fmt.Errorf("%q: %w", query, ErrExhausted)
	}

	// adapter order, then upstream order
	merged := make([]article.Article, 0, total)
	for _, items := range raw {
		for _, r := range items {
			merged = append(merged, article.Normalize(r))
		}
	}

	filtered, dropped := filterByContext(query, p.rules, merged)
	unique, dups := dedupByTitle(filtered)
	sortByDate(unique)
	if p.max > 0 && len(unique) > p.max {
		unique = unique[:p.max]
	}

	p.metrics.AddContextFiltered(dropped)
	p.metrics.AddDuplicatesFiltered(dups)
	p.metrics.AddArticlesReturned(len(unique))
	p.metrics.SetLastRun(query)

	p.log.Info("aggregated",
		"query", query,
		"raw", total,
		"context_filtered", dropped,
		"duplicates", dups,
		"returned", len(unique),
		"took", time.Since(startTime))

	return unique, nil
}

// fanOut runs every source at once and waits for all of them.
// The result is indexed by source position so merge order is deterministic.
func (p *Pipeline) fanOut(ctx context.Context, query string) [][]article.Raw {
	results := make([][]article.Raw, len(p.sources))

	var g errgroup.Group
	for i, src := range p.sources {
		g.Go(func() error {
			results[i] = p.fetchOne(ctx, src, query)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchOne absorbs every failure of a single source into an empty contribution.
func (p *Pipeline) fetchOne(ctx context.Context, src source.Adapter, query string) (items []article.Raw) {
	name := src.Name()
	defer func() {
		if r := recover(); r != nil {
			p.metrics.RecordAdapterFailure(name)
			p.log.Error("source panicked", "source", name, "panic", r)
			items = nil
		}
	}()

	items, err := src.Fetch(ctx, query)
	if err != nil {
		p.metrics.RecordAdapterFailure(name)
		level := slog.LevelWarn
		if errors.Is(err, source.ErrParse) {
			level = slog.LevelError
		}
		p.log.Log(ctx, level, "source failed", "source", name, "query", query, "error", err)
		return nil
	}

	p.metrics.RecordAdapterItems(name, len(items))
	p.log.Debug("source fetched", "source", name, "items", len(items))
	return items
}

// dedupByTitle keeps the first article per exact title.
func dedupByTitle(articles []article.Article) ([]article.Article, int) {
	seen := make(map[string]struct{}, len(articles))
	out := make([]article.Article, 0, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.Title]; dup {
			continue
		}
		seen[a.Title] = struct{}{}
		out = append(out, a)
	}
	return out, len(articles) - len(out)
}

// sortByDate orders newest first; empty dates compare lowest and land last.
// Equal dates keep merge order.
func sortByDate(articles []article.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Date > articles[j].Date
	})
}

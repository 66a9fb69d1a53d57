package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	AggregationsRun    int64
	ExhaustedRuns      int64
	ArticlesReturned   int64
	DuplicatesFiltered int64
	ContextFiltered    int64
	CacheHits          int64
	CacheMisses        int64
	ForcedRefreshes    int64

	// Per adapter
	AdapterItems    map[string]int64
	AdapterFailures map[string]int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string

	// last outcome per query, true when the run produced items
	queryOK map[string]bool
}

// New returns a healthy, zeroed Metrics.
func New() *Metrics {
	return &Metrics{
		AdapterItems:    map[string]int64{},
		AdapterFailures: map[string]int64{},
		queryOK:         map[string]bool{},
	}
}

var Global = New()

func (m *Metrics) IncrementAggregations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AggregationsRun++
}

func (m *Metrics) AddArticlesReturned(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesReturned += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) AddContextFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContextFiltered += int64(n)
}

func (m *Metrics) RecordAdapterItems(adapter string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdapterItems[adapter] += int64(n)
}

func (m *Metrics) RecordAdapterFailure(adapter string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdapterFailures[adapter]++
}

func (m *Metrics) IncrementCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) IncrementForcedRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForcedRefreshes++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.queryOK[query] = true
}

// SetExhausted records a run for query where no adapter produced anything.
func (m *Metrics) SetExhausted(query, err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExhaustedRuns++
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.queryOK[query] = false
}

// Healthy is false only when the latest run of every query seen so far was exhausted.
// One topic with no news does not mark the process down.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy()
}

func (m *Metrics) healthy() bool {
	if len(m.queryOK) == 0 {
		return true
	}
	for _, ok := range m.queryOK {
		if ok {
			return true
		}
	}
	return false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make(map[string]int64, len(m.AdapterItems))
	for k, v := range m.AdapterItems {
		items[k] = v
	}
	failures := make(map[string]int64, len(m.AdapterFailures))
	for k, v := range m.AdapterFailures {
		failures[k] = v
	}
	exhausted := []string{}
	for q, ok := range m.queryOK {
		if !ok {
			exhausted = append(exhausted, q)
		}
	}
	sort.Strings(exhausted)

	return map[string]interface{}{
		"aggregations_run":           m.AggregationsRun,
		"exhausted_runs":             m.ExhaustedRuns,
		"articles_returned":          m.ArticlesReturned,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"context_filtered":           m.ContextFiltered,
		"cache_hits":                 m.CacheHits,
		"cache_misses":               m.CacheMisses,
		"forced_refreshes":           m.ForcedRefreshes,
		"adapter_items":              items,
		"adapter_failures":           failures,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"exhausted_queries":          exhausted,
		"is_healthy":                 m.healthy(),
	}
}

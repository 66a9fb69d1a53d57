package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementAggregations()
			m.RecordAdapterItems("naver", 2)
			m.IncrementCacheMiss()
		}()
	}
	wg.Wait()
	m.RecordAdapterFailure("gemini")
	m.AddDuplicatesFiltered(3)

	stats := m.GetStats()
	assert.Equal(t, int64(10), stats["aggregations_run"])
	assert.Equal(t, int64(10), stats["cache_misses"])
	assert.Equal(t, int64(3), stats["duplicates_filtered"])
	assert.Equal(t, map[string]int64{"naver": 20}, stats["adapter_items"])
	assert.Equal(t, map[string]int64{"gemini": 1}, stats["adapter_failures"])

	// the returned maps are copies
	stats["adapter_items"].(map[string]int64)["naver"] = 0
	assert.Equal(t, int64(20), m.GetStats()["adapter_items"].(map[string]int64)["naver"])
}

func TestHealth(t *testing.T) {
	m := New()
	assert.True(t, m.Healthy())

	m.SetExhausted("SCI", "no source returned any news")
	assert.False(t, m.Healthy())
	assert.Equal(t, int64(1), m.GetStats()["exhausted_runs"])

	m.SetLastRun("SCI")
	assert.True(t, m.Healthy())
}

func TestHealthIsPerQuery(t *testing.T) {
	m := New()
	m.SetLastRun("한국연구재단")
	m.SetExhausted("인문학", "no source returned any news")

	assert.True(t, m.Healthy(), "one empty query must not mark the process down")
	stats := m.GetStats()
	assert.Equal(t, true, stats["is_healthy"])
	assert.Equal(t, []string{"인문학"}, stats["exhausted_queries"])

	m.SetExhausted("한국연구재단", "no source returned any news")
	assert.False(t, m.Healthy())
	assert.Equal(t, []string{"인문학", "한국연구재단"}, m.GetStats()["exhausted_queries"])
}

func TestProcessingTime(t *testing.T) {
	m := New()
	m.RecordProcessingTime(100 * time.Millisecond)
	m.RecordProcessingTime(300 * time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, int64(300), stats["last_processing_time_ms"])
	assert.Equal(t, int64(200), stats["average_processing_time_ms"])
}

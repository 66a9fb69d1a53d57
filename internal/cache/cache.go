// Package cache keeps the last successful article list per topic.
// Entries never expire; they are replaced or removed only on a forced refresh.
package cache

import (
	"context"
	"sync"

	"github.com/deusflow/nrfinsight/internal/article"
)

// Store is the per-topic result cache.
type Store interface {
	Get(ctx context.Context, topicID string) ([]article.Article, bool, error)
	Set(ctx context.Context, topicID string, articles []article.Article) error
	Delete(ctx context.Context, topicID string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]article.Article
}

func New() *Memory {
	return &Memory{items: make(map[string][]article.Article)}
}

func (c *Memory) Get(_ context.Context, topicID string) ([]article.Article, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items, exists := c.items[topicID]
	if !exists {
		return nil, false, nil
	}
	return append([]article.Article{}, items...), true, nil
}

func (c *Memory) Set(_ context.Context, topicID string, articles []article.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[topicID] = append([]article.Article{}, articles...)
	return nil
}

func (c *Memory) Delete(_ context.Context, topicID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, topicID)
	return nil
}

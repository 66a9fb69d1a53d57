package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/deusflow/nrfinsight/internal/article"
)

// DefaultKeyPrefix namespaces tab entries in a shared Redis.
const DefaultKeyPrefix = "nrfinsight:tab:"

// Redis is a Store shared between several dashboard processes.
// Keys are written without expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects using a redis:// URL.
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(client, prefix), nil
}

func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(topicID string) string { return r.prefix + topicID }

func (r *Redis) Get(ctx context.Context, topicID string) ([]article.Article, bool, error) {
	data, err := r.client.Get(ctx, r.key(topicID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", topicID, err)
	}

	var articles []article.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", topicID, err)
	}
	if articles == nil {
		articles = []article.Article{}
	}
	return articles, true, nil
}

func (r *Redis) Set(ctx context.Context, topicID string, articles []article.Article) error {
	if articles == nil {
		articles = []article.Article{}
	}
	data, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topicID, err)
	}
	if err := r.client.Set(ctx, r.key(topicID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", topicID, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, topicID string) error {
	if err := r.client.Del(ctx, r.key(topicID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", topicID, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

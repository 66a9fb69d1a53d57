package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/nrfinsight/internal/article"
)

var sample = []article.Article{
	{Title: "한국연구재단, OO사업 발표", URL: "https://example.com/1", Source: "연합뉴스", Date: "2024.05.01", Snippet: "요약"},
	{Title: "관련 기사", URL: "#", Source: "Web"},
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "NRF")
	require.NoError(t, err)
	assert.False(t, ok, "absent before first load")

	require.NoError(t, s.Set(ctx, "NRF", sample))
	got, ok, err := s.Get(ctx, "NRF")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample, got)

	// an empty successful load is still a loaded tab
	require.NoError(t, s.Set(ctx, "HUM", nil))
	got, ok, err = s.Get(ctx, "HUM")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, s.Set(ctx, "NRF", sample[:1]))
	got, _, err = s.Get(ctx, "NRF")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, s.Delete(ctx, "NRF"))
	_, ok, err = s.Get(ctx, "NRF")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "never-set"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, New())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	c := New()
	in := append([]article.Article{}, sample...)
	require.NoError(t, c.Set(ctx, "NRF", in))
	in[0].Title = "changed"

	got, _, err := c.Get(ctx, "NRF")
	require.NoError(t, err)
	got[1].Title = "changed too"

	again, _, err := c.Get(ctx, "NRF")
	require.NoError(t, err)
	assert.Equal(t, sample, again)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisWithClient(client, "")
	defer s.Close()

	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "SCI", sample))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"SCI"))
	assert.Equal(t, int64(0), int64(mr.TTL(DefaultKeyPrefix+"SCI")), "entries never expire")
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("p:NRF", "not json"))

	s := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "p:")
	defer s.Close()

	_, ok, err := s.Get(context.Background(), "NRF")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis(context.Background(), "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(context.Background(), "UNI", sample))

	_, err = NewRedis(context.Background(), "::bad::", "")
	assert.Error(t, err)
}

package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetLimitsAndResets(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := NewBudget("gemini", 2, time.Hour)
	b.now = func() time.Time { return now }
	b.resetTime = now.Add(time.Hour)

	require.NoError(t, b.Use())
	require.NoError(t, b.Use())
	assert.Equal(t, 0, b.GetStats()["remaining"])

	err := b.Use()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLimitReached))
	assert.Equal(t, 1, b.GetStats()["denied"])

	now = now.Add(time.Hour)
	assert.Equal(t, 2, b.GetStats()["remaining"])
	assert.NoError(t, b.Use())
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget("gemini", 0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Use())
	}
	assert.Equal(t, -1, b.GetStats()["remaining"])
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterInitialization(t *testing.T) {
	l := NewLimiter(10.0)
	assert.Equal(t, 10.0, l.tokens)
	assert.Equal(t, 10.0, l.capacity)
	assert.Equal(t, 10.0, l.rate)
}

func TestLimiterAcquireConsumesToken(t *testing.T) {
	l := NewLimiter(10.0)
	err := l.Acquire(context.Background())
	assert.NoError(t, err)
	assert.InDelta(t, 9.0, l.tokens, 0.5)
}

func TestLimiterZeroRateDisablesLimiting(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 1000; i++ {
		err := l.Acquire(context.Background())
		assert.NoError(t, err)
	}
}

func TestLimiterBlocksUntilRefill(t *testing.T) {
	l := NewLimiter(100.0)
	l.tokens = 0

	start := time.Now()
	err := l.Acquire(context.Background())
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
}

func TestLimiterRespectsContextCancellation(t *testing.T) {
	l := NewLimiter(1.0)
	l.tokens = 0

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

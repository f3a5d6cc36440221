package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetriesExhausted(t *testing.T) {
	task := &ExtractionTask{MaxRetries: 3}

	for i := 0; i < 3; i++ {
		assert.False(t, task.RetriesExhausted(), "retry %d should not exhaust", i)
		task.RetryCount++
	}
	assert.True(t, task.RetriesExhausted())
}

func TestRetriesExhausted_ZeroCeiling(t *testing.T) {
	task := &ExtractionTask{MaxRetries: 0}
	assert.True(t, task.RetriesExhausted())
}

func TestRetryDelay_GrowsExponentially(t *testing.T) {
	// Jitter is ±20%, so each delay lands within [0.8, 1.2] of the
	// nominal value.
	cases := []struct {
		retryCount int
		nominal    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
	}

	for _, tc := range cases {
		delay := RetryDelay(tc.retryCount)
		lo := time.Duration(float64(tc.nominal) * 0.8)
		hi := time.Duration(float64(tc.nominal) * 1.2)
		assert.GreaterOrEqual(t, delay, lo, "retry %d", tc.retryCount)
		assert.LessOrEqual(t, delay, hi, "retry %d", tc.retryCount)
	}
}

func TestRetryDelay_Capped(t *testing.T) {
	for i := 0; i < 20; i++ {
		delay := RetryDelay(10)
		assert.LessOrEqual(t, delay, time.Duration(float64(RetryMaxDelay)*1.2))
		assert.GreaterOrEqual(t, delay, time.Duration(float64(RetryMaxDelay)*0.8))
	}
}

func TestStatusTransitionHelpers(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusProcessing.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusFailed.Active())

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}

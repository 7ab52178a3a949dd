package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("Quota exceeded for metric")))
	assert.False(t, IsRateLimitError(errors.New("invalid argument")))
}

func TestExtractRetryDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
	assert.Equal(t, 45*time.Second+500*time.Millisecond,
		ExtractRetryDelay(errors.New("Error 429, Message: Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")))
	assert.Equal(t, 12*time.Second, ExtractRetryDelay(errors.New("retryDelay: 12s")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("try later")))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewRetryConfig(3)

	assert.Equal(t, DefaultInitialBackoff, c.CalculateBackoff(0, 0))
	assert.Equal(t, 30*time.Second, c.CalculateBackoff(1, 0))
	assert.Equal(t, 11*time.Second, c.CalculateBackoff(0, 10*time.Second))
	assert.Equal(t, DefaultMaxBackoff, c.CalculateBackoff(5, 0))
}

func TestNewRetryConfig(t *testing.T) {
	assert.Equal(t, DefaultMaxRetries, NewRetryConfig(-1).MaxRetries)
	assert.Equal(t, 0, NewRetryConfig(0).MaxRetries)
}

func TestTransientBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, transientBackoff(0))
	assert.Equal(t, 6*time.Second, transientBackoff(2))
}

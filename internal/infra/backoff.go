package infra

import (
	"math"
	"time"
)

const maxBackoffDelay = 60 * time.Second

// CalculateBackoff returns base * 2^retryCount capped at 60s. retryCount 0
// yields the base delay unchanged, so the first retry after a dropped
// session happens after exactly the configured delay.
func CalculateBackoff(base time.Duration, retryCount int) time.Duration {
	// Cap the exponent to prevent overflow (2^6 * 1s = 64s > max 60s)
	if retryCount > 6 {
		return maxBackoffDelay
	}
	delay := base * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > maxBackoffDelay {
		delay = maxBackoffDelay
	}
	return delay
}

package infra

import (
	"math"
	"time"
)

// Reconnect/retry pacing shared by the feed worker and the HTTP clients.
const (
	BackoffBase = 1 * time.Second
	BackoffMax  = 60 * time.Second
)

// CalculateBackoff returns the exponential delay for the given retry count:
// 1s, 2s, 4s, ... capped at BackoffMax.
func CalculateBackoff(retryCount int) time.Duration {
	// Cap retry count to prevent overflow (2^6 = 64 seconds > max 60s)
	if retryCount > 6 {
		return BackoffMax
	}
	delay := BackoffBase * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > BackoffMax {
		delay = BackoffMax
	}
	return delay
}

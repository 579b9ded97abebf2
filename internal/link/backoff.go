package link

import (
	"math/rand"
	"time"
)

// BackoffConfig spaces automatic reconnect attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// Delay is the wait after failed attempt n (1-based). With jitter and an rng
// the wait is spread over [d/2, 3d/2).
func (b BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	mult := max(b.Multiplier, 1.0)
	d := float64(b.InitialDelay)
	for i := 1; i < n; i++ {
		d *= mult
		if b.MaxDelay > 0 && d >= float64(b.MaxDelay) {
			d = float64(b.MaxDelay)
			break
		}
	}
	if b.Jitter && rng != nil {
		d *= 0.5 + rng.Float64()
	}
	return time.Duration(d)
}

// RetryDelay returns the wait before the connect that follows attempt, and
// false once MaxConnectAttempts is spent.
func (c Config) RetryDelay(attempt int, rng *rand.Rand) (time.Duration, bool) {
	if attempt >= c.MaxConnectAttempts {
		return 0, false
	}
	return c.Backoff.Delay(attempt, rng), true
}

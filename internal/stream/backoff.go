package stream

import "time"

const (
	defaultBaseBackoff = 2 * time.Second
	maxBackoff         = 30 * time.Second
)

// calculateBackoff doubles base for every consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if base <= 0 {
		base = defaultBaseBackoff
	}
	if failures <= 0 {
		return base
	}
	delay := base
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

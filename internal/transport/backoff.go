package transport

import (
	"math/rand"
	"time"
)

// maxBackoff caps the delay when BackoffConfig.MaxDelay is unset.
const maxBackoff = time.Minute

// Delay returns how long a Conn waits after failed attempt n (1-based).
// The delay grows by Multiplier per attempt up to MaxDelay; with Jitter
// set and rng non-nil it is scaled by a factor in [0.5, 1.5).
func (b BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	ceiling := b.MaxDelay
	if ceiling <= 0 {
		ceiling = maxBackoff
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.InitialDelay)
	for i := 1; i < attempt && d < float64(ceiling); i++ {
		d *= mult
	}
	if d > float64(ceiling) {
		d = float64(ceiling)
	}
	if b.Jitter && rng != nil {
		d *= 0.5 + rng.Float64()
	}
	return time.Duration(d)
}

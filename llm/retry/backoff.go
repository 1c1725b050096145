// Package retry computes exponential backoff delays for the load balancer's
// fixed and infinite retry policies; retry_once does not back off.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Base and Cap are the backoff parameters prescribed for fixed/infinite
// retry policies: 250ms base, exponential growth, capped at 4s.
const (
	Base = 250 * time.Millisecond
	Cap  = 4 * time.Second
)

// Backoff returns the delay before retry attempt n (1-indexed: the delay
// before the first retry is Backoff(1)), with ±25% jitter applied around
// the exponential curve, clamped to [Base, Cap].
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(Base) * math.Pow(2, float64(attempt-1))
	if delay > float64(Cap) {
		delay = float64(Cap)
	}
	jitter := delay * 0.25
	delay += (rand.Float64()*2 - 1) * jitter
	if delay < float64(Base) {
		delay = float64(Base)
	}
	if delay > float64(Cap) {
		delay = float64(Cap)
	}
	return time.Duration(delay)
}

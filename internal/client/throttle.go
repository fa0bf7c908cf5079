package client

import (
	"context"

	"golang.org/x/time/rate"
)

// opClass groups calls that share a rate budget. Verification runs the
// whole audit pipeline remotely and gets a much smaller budget than reads.
type opClass string

const (
	classRead   opClass = "read"
	classVerify opClass = "verify"
)

// throttle rate limits calls per operation class
type throttle struct {
	limiters map[opClass]*rate.Limiter
}

// newThrottle creates the limiters. A non-positive rate disables limiting
// for that class.
func newThrottle(readsPerSecond, verifyPerSecond float64, burst int) *throttle {
	if burst <= 0 {
		burst = 5
	}
	return &throttle{
		limiters: map[opClass]*rate.Limiter{
			classRead:   rate.NewLimiter(limitOf(readsPerSecond), burst),
			classVerify: rate.NewLimiter(limitOf(verifyPerSecond), burst),
		},
	}
}

func limitOf(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// Wait blocks until the class has budget or ctx is done
func (t *throttle) Wait(ctx context.Context, class opClass) error {
	return t.limiters[class].Wait(ctx)
}

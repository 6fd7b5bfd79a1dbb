package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer gates invocation launches. Wait blocks until the next launch may
// proceed or the context is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

type limiterPacer struct {
	limiter *rate.Limiter
}

func (p *limiterPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// newPacer builds the default launch pacer: a token-bucket limiter with
// burst 1, so launches are spaced evenly at the requested rate. A
// non-positive rate means unpaced all-at-once dispatch.
func newPacer(perSecond int) Pacer {
	if perSecond <= 0 {
		return nil
	}
	return &limiterPacer{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

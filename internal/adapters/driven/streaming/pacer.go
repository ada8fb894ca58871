package streaming

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer spaces /meta/connect requests by the server's advised interval.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer() *pacer {
	return &pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Wait blocks until the next connect may be sent.
func (p *pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Advise applies a server interval in milliseconds. Zero removes pacing.
func (p *pacer) Advise(intervalMillis int) {
	if intervalMillis <= 0 {
		p.limiter.SetLimit(rate.Inf)
		return
	}
	p.limiter.SetLimit(rate.Every(time.Duration(intervalMillis) * time.Millisecond))
}

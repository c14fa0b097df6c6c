// Package ratepace paces reads to simulate a serial connection's baud-rate
// limit, wrapping golang.org/x/time/rate instead of a bare time.Sleep so the
// pacing interval can be reconfigured (or disabled) without races against an
// in-flight wait.
package ratepace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer rate-limits to at most one event per configured interval.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer that allows one event per interval. An interval <= 0
// disables pacing (Wait returns immediately).
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next event is permitted, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// SetInterval reconfigures the pacing interval. An interval <= 0 disables
// pacing.
func (p *Pacer) SetInterval(interval time.Duration) {
	if interval <= 0 {
		p.limiter.SetLimit(rate.Inf)
		return
	}
	p.limiter.SetLimit(rate.Every(interval))
}

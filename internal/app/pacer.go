package app

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/bft-labs/basepilot/internal/ports"
)

// RatePacer releases one control tick per interval. The first tick is
// released immediately.
type RatePacer struct {
	limiter *rate.Limiter
}

var _ ports.Pacer = (*RatePacer)(nil)

// NewRatePacer returns a pacer ticking every interval.
func NewRatePacer(interval time.Duration) *RatePacer {
	return &RatePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next tick is due or ctx is done.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoPacer never blocks. It is used when ticks are paced elsewhere.
type NoPacer struct{}

// Wait returns the context error, if any.
func (NoPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}

package resource

import (
	"context"

	"golang.org/x/time/rate"
)

// SendGuard rate-limits calls into broker.Send, the domain use of
// golang.org/x/time/rate named in the expanded spec's resource guard
// component.
type SendGuard struct {
	limiter *rate.Limiter
}

// NewSendGuard creates a guard allowing up to ratePerSec sustained sends
// with a burst of burst.
func NewSendGuard(ratePerSec float64, burst int) *SendGuard {
	return &SendGuard{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Allow reports whether a send may proceed right now, without blocking
// (mirrors the non-blocking admission checks used elsewhere in the
// framework).
func (g *SendGuard) Allow() bool { return g.limiter.Allow() }

// Wait blocks until a send is permitted or ctx is done.
func (g *SendGuard) Wait(ctx context.Context) error { return g.limiter.Wait(ctx) }

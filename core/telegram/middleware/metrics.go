package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/raidbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Counters tracks what a handler sent back while serving one update.
type Counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

type countersKey struct{}

const countersSlot = "metrics.counters"

// WithCounters attaches c to ctx.
func WithCounters(ctx context.Context, c *Counters) context.Context {
	return context.WithValue(ctx, countersKey{}, c)
}

// CountMessage records one outgoing message on the counters carried by ctx,
// if any.
func CountMessage(ctx context.Context, withKeyboard bool) {
	if ctx == nil {
		return
	}
	c, _ := ctx.Value(countersKey{}).(*Counters)
	if c == nil {
		return
	}
	c.messages.Add(1)
	if withKeyboard {
		c.keyboard.Store(true)
	}
}

// MessageMetricsMiddleware installs fresh counters for the update. Code that
// sends through a context derived from tghelpers.BuildContext reports into them.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		counters := &Counters{}
		c.Set(countersSlot, counters)
		tghelpers.StoreContext(c, WithCounters(tghelpers.BuildContext(c), counters))
		return next(c)
	}
}

// GetCounters returns the message count and keyboard flag for the update.
func GetCounters(c tele.Context) (int, bool) {
	counters, _ := c.Get(countersSlot).(*Counters)
	if counters == nil {
		return 0, false
	}
	return int(counters.messages.Load()), counters.keyboard.Load()
}

package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/raidbot/core/config"
	"github.com/m3rciful/raidbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the global chain, outermost first. When serial is
// set, everything after it runs on the update's chat lane.
func DefaultMiddlewares(cfg *coreconfig.Config, serial *middleware.Serializer, onLimited tele.HandlerFunc) []Middleware {
	var mws []Middleware
	if serial != nil {
		mws = append(mws, Middleware{Name: "serial", Use: serial.Middleware})
	}
	mws = append(mws, Middleware{Name: "recover", Use: middleware.RecoverMiddleware})

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[strings.ToLower(kind)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   exclude,
				OnLimited: onLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

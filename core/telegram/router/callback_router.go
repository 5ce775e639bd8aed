package router

import (
	"log/slog"

	tg "github.com/m3rciful/raidbot/core/telegram"
	"github.com/m3rciful/raidbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every inline button press through the registry by its
// unique id. The spinner is cleared before the handler runs.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Parse(c.Callback())
		name := "callback." + handlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("cause", "not_found"))
			return summary(c, name, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}
		return summary(c, name, func() error { return cbHandler(c) }, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}

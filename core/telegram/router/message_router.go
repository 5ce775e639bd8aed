package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/raidbot/core/telegram"
	tghelpers "github.com/m3rciful/raidbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FSM is a conversation manager keyed by chat.
type FSM interface {
	InProgress(chatID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for plain text.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoute sends plain text to the chat's conversation when one is open,
// then to registered commands typed without telebot matching them, then to
// the fallbacks.
func TextRoute(fsm FSM, reg *tg.Registry, opts TextOptions) tg.Route {
	handler := func(c tele.Context) error {
		chatID, _ := tghelpers.ChatAndUser(c)
		if fsm != nil && fsm.InProgress(chatID) {
			return summary(c, "fsm", func() error { return fsm.ManagerHandler(c) })
		}

		text := c.Text()
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && strings.HasPrefix(text, "/") && cmd.Handler != nil && !cmd.AdminOnly {
				return summary(c, handlerName(key), func() error { return cmd.Handler(c) })
			}
			if fb := reg.TextFallback(); fb != nil {
				return summary(c, "fallback", func() error { return fb(c) })
			}
		}

		if opts.UnknownText != nil {
			return summary(c, "unknown_text", func() error { return opts.UnknownText(c) })
		}
		logHandled(c, "unknown_text", time.Now(), "skip", nil)
		return nil
	}
	return tg.Route{Endpoint: tele.OnText, Handler: handler}
}

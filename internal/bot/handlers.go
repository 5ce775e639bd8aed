package bot

import (
	"context"
	"errors"
	"strings"

	tg "github.com/m3rciful/raidbot/core/telegram"
	"github.com/m3rciful/raidbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/raidbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Handlers adapts telebot updates to the Orchestrator.
type Handlers struct {
	o *Orchestrator
}

// NewHandlers binds the telebot side to o.
func NewHandlers(o *Orchestrator) *Handlers {
	return &Handlers{o: o}
}

// InProgress reports whether the chat has an open flow, for the text router.
func (h *Handlers) InProgress(chatID int64) bool {
	return h.o.InProgress(chatID)
}

// ManagerHandler routes plain text to the chat's flow.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	return h.o.HandleText(updateCtx(c), inbound(c))
}

// Register adds the bot's commands and button callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	o := h.o
	cmds := map[string]tg.Command{
		"/sgx_setup": {
			Description: "Set up this chat's ShillgenX account",
			Handler:     h.wrap(o.StartProjectSetup),
		},
		"/sgx_edit": {
			Description: "Change one field of the account",
			Handler:     h.wrap(o.StartProjectEdit),
		},
		"/sgx_delete": {
			Description: "Delete this chat's account",
			Handler:     h.wrap(o.DeleteProject),
		},
		"/sgx_info": {
			Description: "Show this chat's account",
			Handler:     h.wrap(o.ShowProject),
		},
		"/shillx": {
			Description: "Start a raid on an X post",
			Handler:     h.wrap(o.StartTargetSetup),
		},
		"/raid_goals": {
			Description: "Set raid goals: <target id> c,r,l,b",
			Handler: func(c tele.Context) error {
				return o.SetTargetGoals(updateCtx(c), inbound(c), payload(c))
			},
		},
		"/sgx_unlock": {
			Description: "Unlock this chat now",
			Handler:     h.wrap(o.Unlock),
		},
		"/sgx_locks": {
			Description: "List pending unlocks",
			Handler:     h.wrap(o.Locks),
			AdminOnly:   true,
		},
		"/cancel": {
			Description: "Cancel the current setup",
			Handler:     h.wrap(o.Cancel),
		},
		"/start": {
			Description: "Open a raid link",
			Hidden:      true,
			Handler: func(c tele.Context) error {
				return o.HandleStart(updateCtx(c), inbound(c), payload(c))
			},
		},
	}

	var errs []error
	for name, cmd := range cmds {
		errs = append(errs, reg.RegisterCommand(name, cmd))
	}
	errs = append(errs,
		reg.RegisterCallback(CallbackCancel, h.wrap(o.Cancel)),
		reg.RegisterCallback(CallbackField, func(c tele.Context) error {
			return o.HandleEditField(updateCtx(c), inbound(c), callbacks.Payload(c))
		}),
	)
	return errors.Join(errs...)
}

func (h *Handlers) wrap(fn func(context.Context, Inbound) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(updateCtx(c), inbound(c))
	}
}

func updateCtx(c tele.Context) context.Context {
	return tghelpers.BuildContext(c)
}

func inbound(c tele.Context) Inbound {
	chatID, userID := tghelpers.ChatAndUser(c)
	in := Inbound{ChatID: chatID, UserID: userID, Text: c.Text()}
	if c.Callback() == nil {
		if m := c.Message(); m != nil {
			in.MessageID = m.ID
		}
	}
	return in
}

// payload is the text after the command, telebot's Message.Payload.
func payload(c tele.Context) string {
	if m := c.Message(); m != nil && c.Callback() == nil {
		return strings.TrimSpace(m.Payload)
	}
	return ""
}

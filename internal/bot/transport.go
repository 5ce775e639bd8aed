package bot

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/raidbot/core/telegram/keyboard"
	"github.com/m3rciful/raidbot/core/telegram/middleware"
	"github.com/m3rciful/raidbot/core/telegram/sender"
	"github.com/m3rciful/raidbot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// ErrNotReady is returned by Telegram before SetBot.
var ErrNotReady = errors.New("bot: telegram client not ready")

// Telegram is the Transport backed by the Bot API. Sends and deletes are
// queued on the dispatcher lane of their chat so a chat sees replies in
// order; lookups and permission changes run inline.
type Telegram struct {
	bot        atomic.Pointer[tele.Bot]
	dispatcher *sender.Dispatcher
}

// NewTelegram returns a transport that queues outbound messages on d.
func NewTelegram(d *sender.Dispatcher) *Telegram {
	return &Telegram{dispatcher: d}
}

// SetBot installs the client once the runtime has built it.
func (t *Telegram) SetBot(b *tele.Bot) {
	t.bot.Store(b)
}

func (t *Telegram) api() (*tele.Bot, error) {
	b := t.bot.Load()
	if b == nil {
		return nil, ErrNotReady
	}
	return b, nil
}

func (t *Telegram) Send(ctx context.Context, msg Outgoing) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{
		ReplyMarkup:           keyboard.InlineButtonsRows(msg.Buttons...),
		DisableWebPagePreview: msg.NoPreview,
	}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdownV2
	}
	middleware.CountMessage(ctx, opts.ReplyMarkup != nil)
	err = t.dispatcher.Enqueue(ctx, msg.ChatID, "send", func() error {
		_, err := b.Send(tele.ChatID(msg.ChatID), msg.Text, opts)
		return err
	})
	return domain.Wrap(domain.CollaboratorTransport, "send", err)
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	stored := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	err = t.dispatcher.Enqueue(ctx, chatID, "delete", func() error {
		return b.Delete(stored)
	})
	return domain.Wrap(domain.CollaboratorTransport, "delete", err)
}

func (t *Telegram) Administrators(_ context.Context, chatID int64) ([]int64, error) {
	b, err := t.api()
	if err != nil {
		return nil, err
	}
	members, err := b.AdminsOf(&tele.Chat{ID: chatID})
	if err != nil {
		return nil, domain.Wrap(domain.CollaboratorTransport, "admins", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

// SetWritePermission toggles the chat's default member rights. Unlocking
// restores plain messaging, polls, stickers, previews and invites.
func (t *Telegram) SetWritePermission(_ context.Context, chatID int64, allowed bool) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	rights := tele.Rights{CanInviteUsers: true}
	if allowed {
		rights.CanSendMessages = true
		rights.CanSendPolls = true
		rights.CanSendOther = true
		rights.CanAddPreviews = true
	}
	if err := b.SetGroupPermissions(&tele.Chat{ID: chatID}, rights); err != nil {
		return domain.Wrap(domain.CollaboratorTransport, "permissions", err)
	}
	return nil
}

func (t *Telegram) ExportInviteLink(_ context.Context, chatID int64) (string, error) {
	b, err := t.api()
	if err != nil {
		return "", err
	}
	link, err := b.InviteLink(&tele.Chat{ID: chatID})
	if err != nil {
		return "", domain.Wrap(domain.CollaboratorTransport, "invite link", err)
	}
	return link, nil
}

func (t *Telegram) BotUsername() string {
	b := t.bot.Load()
	if b == nil || b.Me == nil {
		return ""
	}
	return b.Me.Username
}

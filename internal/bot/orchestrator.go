// Package bot drives the raid bot conversations. The Orchestrator owns the
// chat sessions and turns inbound messages into state machine steps,
// persistence calls, chat locks and replies.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/core/telegram/keyboard"
	"github.com/m3rciful/raidbot/core/telegram/state"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/flow"
	"github.com/m3rciful/raidbot/internal/lock"
	"github.com/m3rciful/raidbot/internal/validate"
)

const component = "flow"

// Callback unique ids of the inline buttons the bot sends.
const (
	CallbackCancel = "sgx_cancel"
	CallbackField  = "sgx_field"
)

// Outgoing is one message to a chat.
type Outgoing struct {
	ChatID  int64
	Text    string
	Buttons [][]keyboard.InlineBtn
	// Markdown marks Text as MarkdownV2.
	Markdown  bool
	NoPreview bool
}

// Inbound is one message or button press from a chat member.
type Inbound struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
}

// Transport is the messaging service.
type Transport interface {
	Send(ctx context.Context, msg Outgoing) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	Administrators(ctx context.Context, chatID int64) ([]int64, error)
	SetWritePermission(ctx context.Context, chatID int64, allowed bool) error
	ExportInviteLink(ctx context.Context, chatID int64) (string, error)
	BotUsername() string
}

// Projects stores one project per chat.
type Projects interface {
	InsertProject(ctx context.Context, p *domain.Project) error
	FindProjectByChat(ctx context.Context, chatID int64) (domain.Project, error)
	FindProjectByID(ctx context.Context, id string) (domain.Project, error)
	DeleteProjectByChat(ctx context.Context, chatID int64) (bool, error)
	UpdateProjectField(ctx context.Context, chatID int64, field string, value any) error
}

// Targets stores raid targets.
type Targets interface {
	InsertTarget(ctx context.Context, t *domain.Target) error
	FindTargetByID(ctx context.Context, id string) (domain.Target, error)
	ListTargetsByChat(ctx context.Context, chatID int64, limit int) ([]domain.Target, error)
	UpdateTargetGoals(ctx context.Context, chatID int64, targetID string, goals domain.Goals) error
}

// Generator drafts topic texts and posts.
type Generator interface {
	PrefillTopics(ctx context.Context, description string) (domain.Topics, error)
	GeneratePost(ctx context.Context, p domain.Project, mood, topic string) (string, error)
}

// Locker silences chats and releases them later.
type Locker interface {
	LockNow(ctx context.Context, chatID int64) error
	ScheduleUnlock(ctx context.Context, chatID int64, minutes int) (time.Time, error)
	Unlock(ctx context.Context, chatID int64) error
	Deadline(chatID int64) (time.Time, bool)
	Pending() []lock.Entry
}

// Options configures the Orchestrator.
type Options struct {
	// InviteMarker must appear in the chat invite link.
	InviteMarker string
	// DefaultGoals are stamped on new targets until /raid_goals changes them.
	DefaultGoals domain.Goals
	Now          func() time.Time
}

// Orchestrator runs the setup flows of every chat.
type Orchestrator struct {
	tr       Transport
	projects Projects
	targets  Targets
	gen      Generator
	locker   Locker
	sessions *flow.Store
	opts     Options
}

// New wires an Orchestrator. gen may be nil, in which case topics stay empty
// and deep links show details only.
func New(tr Transport, projects Projects, targets Targets, gen Generator, locker Locker, opts Options) *Orchestrator {
	if opts.InviteMarker == "" {
		opts.InviteMarker = validate.DefaultInviteMarker
	}
	if opts.DefaultGoals == (domain.Goals{}) {
		opts.DefaultGoals = domain.Goals{Comments: 10, Reposts: 10, Likes: 20, Bookmarks: 5}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		tr:       tr,
		projects: projects,
		targets:  targets,
		gen:      gen,
		locker:   locker,
		sessions: flow.NewStore(),
		opts:     opts,
	}
}

// InProgress reports whether the chat has an open flow.
func (o *Orchestrator) InProgress(chatID int64) bool {
	return o.sessions.Has(chatID)
}

// Session returns a copy of the chat's open flow.
func (o *Orchestrator) Session(chatID int64) (flow.Session, bool) {
	return o.sessions.Get(chatID)
}

// StartProjectSetup opens the project questionnaire for a chat administrator.
func (o *Orchestrator) StartProjectSetup(ctx context.Context, in Inbound) error {
	if !o.isAdmin(ctx, in) {
		return nil
	}
	_, err := o.projects.FindProjectByChat(ctx, in.ChatID)
	switch {
	case err == nil:
		o.say(ctx, in.ChatID, msgProjectExists)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		o.say(ctx, in.ChatID, msgTryAgain)
		return domain.Wrap(domain.CollaboratorPersistence, "find project", err)
	}
	_, err = o.open(ctx, in, flow.KindProjectSetup, nil)
	return err
}

// StartTargetSetup locks the chat and asks for the raid target.
func (o *Orchestrator) StartTargetSetup(ctx context.Context, in Inbound) error {
	if !o.isAdmin(ctx, in) {
		return nil
	}
	if _, ok, err := o.project(ctx, in.ChatID); !ok {
		return err
	}
	if started, err := o.open(ctx, in, flow.KindTargetSetup, nil); !started {
		return err
	}
	if err := o.locker.LockNow(ctx, in.ChatID); err != nil {
		o.say(ctx, in.ChatID, msgLockFailed)
	}
	return nil
}

// StartProjectEdit opens a single-field edit of the chat's project.
func (o *Orchestrator) StartProjectEdit(ctx context.Context, in Inbound) error {
	if !o.isAdmin(ctx, in) {
		return nil
	}
	if _, ok, err := o.project(ctx, in.ChatID); !ok {
		return err
	}
	fields := make([]keyboard.InlineBtn, 0, len(validate.EditableFields))
	for _, f := range validate.EditableFields {
		fields = append(fields, keyboard.InlineBtn{Text: f, Unique: CallbackField, Data: f})
	}
	_, err := o.open(ctx, in, flow.KindProjectEdit, keyboard.Rows(fields, 2))
	return err
}

// open starts a flow of kind and asks its first question. It reports false
// when the chat already has a flow.
func (o *Orchestrator) open(ctx context.Context, in Inbound, kind flow.Kind, rows [][]keyboard.InlineBtn) (bool, error) {
	s, err := flow.Start(o.sessions, in.ChatID, in.UserID, kind, o.opts.Now())
	if errors.Is(err, state.ErrDuplicateSession) {
		o.say(ctx, in.ChatID, msgFlowActive)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ctx = logger.WithFlow(ctx, string(kind), s.Step.String())
	logger.Info(ctx, component, "flow.start",
		slog.String("status", "ok"),
		slog.Int64("chat_id", in.ChatID),
		slog.Int64("user_id", in.UserID),
	)
	rows = append(rows, []keyboard.InlineBtn{keyboard.CancelBtn(CallbackCancel)})
	o.send(ctx, Outgoing{ChatID: in.ChatID, Text: flow.Prompt(s.Step), Buttons: rows})
	return true, nil
}

// Cancel ends the chat's flow when the sender owns it. A cancelled target
// setup lifts the lock it applied, unless an earlier raid's release is still
// pending for the chat.
func (o *Orchestrator) Cancel(ctx context.Context, in Inbound) error {
	s, ok := flow.Cancel(o.sessions, in.ChatID, in.UserID)
	if !ok {
		return nil
	}
	ctx = logger.WithFlow(ctx, string(s.Kind), s.Step.String())
	logger.Info(ctx, component, "flow.cancel",
		slog.String("status", "cancelled"),
		slog.Int64("chat_id", in.ChatID),
	)
	if s.Kind == flow.KindTargetSetup {
		o.releaseUnscheduled(ctx, in.ChatID)
	}
	o.say(ctx, in.ChatID, msgCancelled)
	return nil
}

func (o *Orchestrator) releaseUnscheduled(ctx context.Context, chatID int64) {
	if _, pending := o.locker.Deadline(chatID); pending {
		return
	}
	if err := o.locker.Unlock(ctx, chatID); err != nil {
		o.say(ctx, chatID, msgUnlockFailed)
	}
}

// HandleText feeds a chat message into the chat's flow. Messages from anyone
// but the flow owner are ignored.
func (o *Orchestrator) HandleText(ctx context.Context, in Inbound) error {
	var (
		res    flow.Result
		advErr error
		snap   flow.Session
	)
	err := o.sessions.With(in.ChatID, func(s *flow.Session) error {
		res, advErr = flow.Advance(s, in.UserID, in.Text)
		snap = *s
		return nil
	})
	if errors.Is(err, state.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if res.Ignored || errors.Is(advErr, flow.ErrFlowComplete) {
		return nil
	}
	ctx = logger.WithFlow(ctx, string(snap.Kind), snap.Step.String())

	var ve *domain.ValidationError
	if errors.As(advErr, &ve) {
		logger.Debug(ctx, component, "flow.reject",
			slog.String("status", "skip"),
			slog.Int64("chat_id", in.ChatID),
			slog.String("err_code", ve.Code()),
		)
		o.say(ctx, in.ChatID, ve.Msg)
		return nil
	}
	if advErr != nil {
		return advErr
	}

	if snap.Kind == flow.KindTargetSetup && snap.Step == flow.StepAwaitingLockDuration && in.MessageID != 0 {
		// the raid link is handed out through the deep link only
		if err := o.tr.DeleteMessage(ctx, in.ChatID, in.MessageID); err != nil {
			logger.Warn(ctx, component, "target.link.delete",
				slog.String("status", "fail"),
				slog.Int64("chat_id", in.ChatID),
				logger.Err(err),
			)
		}
	}

	if !res.Complete {
		text := flow.Prompt(res.Step)
		if res.Step == flow.StepAwaitingEditValue {
			text = msgEditValue(snap.Edit.Field)
		}
		o.say(ctx, in.ChatID, text)
		return nil
	}

	switch {
	case res.Project != nil:
		return o.commitProject(ctx, in.ChatID, *res.Project)
	case res.Target != nil:
		return o.commitTarget(ctx, in.ChatID, *res.Target)
	case res.Edit != nil:
		return o.commitEdit(ctx, in.ChatID, *res.Edit)
	}
	return nil
}

// HandleEditField applies a field button press as the answer to the edit
// flow's field question.
func (o *Orchestrator) HandleEditField(ctx context.Context, in Inbound, field string) error {
	s, ok := o.sessions.Get(in.ChatID)
	if !ok || s.Kind != flow.KindProjectEdit || s.Step != flow.StepAwaitingEditField {
		return nil
	}
	in.Text = field
	in.MessageID = 0
	return o.HandleText(ctx, in)
}

func (o *Orchestrator) isAdmin(ctx context.Context, in Inbound) bool {
	admins, err := o.tr.Administrators(ctx, in.ChatID)
	if err != nil {
		logger.Warn(ctx, component, "admin.check",
			slog.String("status", "fail"),
			slog.Int64("chat_id", in.ChatID),
			logger.Err(err),
		)
		return false
	}
	ok := slices.Contains(admins, in.UserID)
	if !ok {
		logger.Debug(ctx, component, "admin.check",
			slog.String("status", "ignored"),
			slog.Int64("chat_id", in.ChatID),
			slog.Int64("user_id", in.UserID),
		)
	}
	return ok
}

// project loads the chat's project, telling the chat when there is none or
// the lookup failed.
func (o *Orchestrator) project(ctx context.Context, chatID int64) (domain.Project, bool, error) {
	p, err := o.projects.FindProjectByChat(ctx, chatID)
	switch {
	case err == nil:
		return p, true, nil
	case errors.Is(err, domain.ErrNotFound):
		o.say(ctx, chatID, msgNoProject)
		return domain.Project{}, false, nil
	}
	o.say(ctx, chatID, msgTryAgain)
	return domain.Project{}, false, domain.Wrap(domain.CollaboratorPersistence, "find project", err)
}

func (o *Orchestrator) say(ctx context.Context, chatID int64, text string) {
	o.send(ctx, Outgoing{ChatID: chatID, Text: text})
}

// send is best effort: a failed send is logged and never aborts the flow.
func (o *Orchestrator) send(ctx context.Context, msg Outgoing) {
	if err := o.tr.Send(ctx, msg); err != nil {
		logger.Warn(ctx, component, "send",
			slog.String("status", "fail"),
			slog.Int64("chat_id", msg.ChatID),
			logger.Err(err),
		)
	}
}

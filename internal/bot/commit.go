package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/flow"
	"github.com/m3rciful/raidbot/internal/validate"
)

// commitProject completes a project draft with the chat invite link and
// topic texts and stores it. The session is removed only once the insert
// succeeded.
func (o *Orchestrator) commitProject(ctx context.Context, chatID int64, p domain.Project) error {
	o.say(ctx, chatID, msgCreating)

	link, err := o.tr.ExportInviteLink(ctx, chatID)
	if err == nil {
		link, err = validate.InviteLink(link, o.opts.InviteMarker)
	}
	if err != nil {
		return o.failCommit(ctx, chatID, msgInviteFailed, domain.Wrap(domain.CollaboratorTransport, "invite link", err))
	}
	p.ChatID = chatID
	p.InviteLink = link
	p.Topics = o.prefill(ctx, p.Description)

	err = o.projects.InsertProject(ctx, &p)
	if errors.Is(err, domain.ErrDuplicateProject) {
		o.sessions.Remove(chatID)
		o.say(ctx, chatID, msgProjectExists)
		return nil
	}
	if err != nil {
		return o.failCommit(ctx, chatID, msgSaveFailed, domain.Wrap(domain.CollaboratorPersistence, "insert project", err))
	}

	o.sessions.Remove(chatID)
	logger.Info(ctx, component, "project.created",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("project_id", p.ID),
	)
	o.say(ctx, chatID, msgProjectCreated)
	return nil
}

// prefill drafts topic texts. Generation problems leave every topic empty
// instead of blocking the project.
func (o *Orchestrator) prefill(ctx context.Context, description string) domain.Topics {
	if o.gen == nil {
		return domain.EmptyTopics()
	}
	topics, err := o.gen.PrefillTopics(ctx, description)
	if err != nil {
		logger.Warn(ctx, component, "topics.prefill",
			slog.String("status", "degraded"),
			logger.Err(err),
		)
		return domain.EmptyTopics()
	}
	return topics
}

// commitTarget stores the target, hands out its deep link and arms the
// chat's release.
func (o *Orchestrator) commitTarget(ctx context.Context, chatID int64, t domain.Target) error {
	p, err := o.projects.FindProjectByChat(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		o.sessions.Remove(chatID)
		o.releaseUnscheduled(ctx, chatID)
		o.say(ctx, chatID, msgNoProject)
		return nil
	}
	if err != nil {
		return o.failCommit(ctx, chatID, msgSaveFailed, domain.Wrap(domain.CollaboratorPersistence, "find project", err))
	}
	t.ProjectID = p.ID
	t.ChatID = chatID
	t.Goals = o.opts.DefaultGoals
	if err := o.targets.InsertTarget(ctx, &t); err != nil {
		return o.failCommit(ctx, chatID, msgSaveFailed, domain.Wrap(domain.CollaboratorPersistence, "insert target", err))
	}
	o.sessions.Remove(chatID)

	link := domain.DeepLink{ChatID: chatID, TargetID: t.ID}
	o.send(ctx, Outgoing{ChatID: chatID, Text: link.URL(o.tr.BotUsername()), NoPreview: true})

	// The chat may still be locked from the start of the flow, so the
	// release is armed even when re-locking fails.
	lockErr := o.locker.LockNow(ctx, chatID)
	if lockErr != nil {
		logger.Warn(ctx, component, "target.lock",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			logger.Err(lockErr),
		)
	}
	deadline, err := o.locker.ScheduleUnlock(ctx, chatID, t.LockMinutes)
	if err != nil {
		logger.Error(ctx, component, "target.schedule",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			logger.Err(err),
		)
		o.releaseUnscheduled(ctx, chatID)
		return err
	}
	logger.Info(ctx, component, "target.created",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("target_id", t.ID),
		slog.Int("minutes", t.LockMinutes),
		slog.Time("deadline", deadline),
	)
	if lockErr != nil {
		o.say(ctx, chatID, msgLockFailed)
		return nil
	}
	o.say(ctx, chatID, msgLocked(t.LockMinutes))
	return nil
}

func (o *Orchestrator) commitEdit(ctx context.Context, chatID int64, e flow.EditDraft) error {
	var value any = e.Value.Text
	if e.Field == validate.FieldTags {
		value = e.Value.Tags
	}
	err := o.projects.UpdateProjectField(ctx, chatID, e.Field, value)
	if errors.Is(err, domain.ErrNotFound) {
		o.sessions.Remove(chatID)
		o.say(ctx, chatID, msgNoProject)
		return nil
	}
	if err != nil {
		return o.failCommit(ctx, chatID, msgSaveFailed, domain.Wrap(domain.CollaboratorPersistence, "update project", err))
	}
	o.sessions.Remove(chatID)
	o.say(ctx, chatID, msgFieldUpdated(e.Field))
	return nil
}

// failCommit steps the session back to its last question so the owner can
// answer again. After flow.MaxCommitFailures the flow is abandoned, and an
// abandoned target setup lifts its lock.
func (o *Orchestrator) failCommit(ctx context.Context, chatID int64, userMsg string, cause error) error {
	var (
		retry bool
		s     flow.Session
	)
	err := o.sessions.With(chatID, func(cur *flow.Session) error {
		retry = flow.Rewind(cur)
		s = *cur
		return nil
	})
	if err != nil {
		return cause
	}
	attrs := []slog.Attr{
		slog.Int64("chat_id", chatID),
		slog.Int("attempts", s.Failures),
		logger.Err(cause),
	}
	if retry {
		logger.Warn(ctx, component, "flow.commit", append(attrs, slog.String("status", "retry"))...)
		o.say(ctx, chatID, userMsg+"\n\n"+flow.Prompt(s.Step))
		return cause
	}

	logger.Error(ctx, component, "flow.commit", append(attrs, slog.String("status", "fail"))...)
	o.sessions.Remove(chatID)
	if s.Kind == flow.KindTargetSetup {
		o.releaseUnscheduled(ctx, chatID)
	}
	o.say(ctx, chatID, msgGiveUp)
	return cause
}

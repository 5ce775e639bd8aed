package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/generate"
	"github.com/m3rciful/raidbot/internal/validate"
)

// DeleteProject removes the chat's project and its targets.
func (o *Orchestrator) DeleteProject(ctx context.Context, in Inbound) error {
	if !o.isAdmin(ctx, in) {
		return nil
	}
	deleted, err := o.projects.DeleteProjectByChat(ctx, in.ChatID)
	if err != nil {
		o.say(ctx, in.ChatID, msgTryAgain)
		return domain.Wrap(domain.CollaboratorPersistence, "delete project", err)
	}
	if !deleted {
		o.say(ctx, in.ChatID, msgNoProject)
		return nil
	}
	logger.Info(ctx, component, "project.deleted",
		slog.String("status", "ok"),
		slog.Int64("chat_id", in.ChatID),
	)
	o.say(ctx, in.ChatID, msgDeleted)
	return nil
}

// SetTargetGoals handles "<target id> c,r,l,b" and replaces the goals of one
// of the chat's targets.
func (o *Orchestrator) SetTargetGoals(ctx context.Context, in Inbound, args string) error {
	if !o.isAdmin(ctx, in) {
		return nil
	}
	parts := strings.Fields(args)
	if len(parts) != 2 {
		o.say(ctx, in.ChatID, msgGoalsUsage)
		return nil
	}
	goals, err := validate.Goals(parts[1])
	if err != nil {
		o.say(ctx, in.ChatID, err.Error())
		return nil
	}
	err = o.targets.UpdateTargetGoals(ctx, in.ChatID, parts[0], goals)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		o.say(ctx, in.ChatID, msgTargetNotFound)
		return nil
	case err != nil:
		o.say(ctx, in.ChatID, msgTryAgain)
		return domain.Wrap(domain.CollaboratorPersistence, "update goals", err)
	}
	o.say(ctx, in.ChatID, msgGoalsUpdated(goals))
	return nil
}

// ShowProject prints the chat's project, its latest target and the lock state.
func (o *Orchestrator) ShowProject(ctx context.Context, in Inbound) error {
	p, ok, err := o.project(ctx, in.ChatID)
	if !ok {
		return err
	}
	text := projectDetails(p)
	targets, err := o.targets.ListTargetsByChat(ctx, in.ChatID, 1)
	if err != nil {
		logger.Warn(ctx, component, "targets.list",
			slog.String("status", "degraded"),
			slog.Int64("chat_id", in.ChatID),
			logger.Err(err),
		)
	} else if len(targets) > 0 {
		text += "\n" + targetDetails(targets[0])
	}
	if deadline, locked := o.locker.Deadline(in.ChatID); locked {
		text += "\n" + lockStatus(deadline, o.opts.Now())
	}
	o.send(ctx, Outgoing{ChatID: in.ChatID, Text: text, Markdown: true, NoPreview: true})
	return nil
}

// HandleStart answers /start. A "<chatId>_<targetId>" payload shows the
// target, its project and a suggested post; anything else gets the welcome.
func (o *Orchestrator) HandleStart(ctx context.Context, in Inbound, payload string) error {
	link, ok := domain.ParseDeepLink(payload)
	if !ok {
		o.say(ctx, in.ChatID, msgWelcome)
		return nil
	}
	t, err := o.targets.FindTargetByID(ctx, link.TargetID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && t.ChatID != link.ChatID) {
		o.say(ctx, in.ChatID, msgTargetNotFound)
		return nil
	}
	if err != nil {
		o.say(ctx, in.ChatID, msgTryAgain)
		return domain.Wrap(domain.CollaboratorPersistence, "find target", err)
	}
	p, err := o.projects.FindProjectByID(ctx, t.ProjectID)
	if errors.Is(err, domain.ErrNotFound) {
		o.say(ctx, in.ChatID, msgTargetNotFound)
		return nil
	}
	if err != nil {
		o.say(ctx, in.ChatID, msgTryAgain)
		return domain.Wrap(domain.CollaboratorPersistence, "find project", err)
	}

	o.send(ctx, Outgoing{
		ChatID:    in.ChatID,
		Text:      targetDetails(t) + "\n" + projectDetails(p),
		Markdown:  true,
		NoPreview: true,
	})

	if post, ok := o.suggestPost(ctx, p, fmt.Sprintf("%d:%s", in.UserID, t.ID)); ok {
		o.say(ctx, in.ChatID, post)
	}
	return nil
}

func (o *Orchestrator) suggestPost(ctx context.Context, p domain.Project, seed string) (string, bool) {
	if o.gen == nil {
		return "", false
	}
	mood, topic := generate.PickAngle(p, seed)
	post, err := o.gen.GeneratePost(ctx, p, mood, topic)
	if err != nil {
		logger.Warn(ctx, component, "post.generate",
			slog.String("status", "degraded"),
			slog.String("project_id", p.ID),
			logger.Err(err),
		)
		return "", false
	}
	return post, true
}

// Locks lists every pending release.
func (o *Orchestrator) Locks(ctx context.Context, in Inbound) error {
	o.send(ctx, Outgoing{ChatID: in.ChatID, Text: pendingLocks(o.locker.Pending(), o.opts.Now())})
	return nil
}

// Unlock lifts the chat's restriction now and drops its pending release.
func (o *Orchestrator) Unlock(ctx context.Context, in Inbound) error {
	if !o.isAdmin(ctx, in) {
		return nil
	}
	if err := o.locker.Unlock(ctx, in.ChatID); err != nil {
		o.say(ctx, in.ChatID, msgUnlockFailed)
		return err
	}
	o.say(ctx, in.ChatID, msgUnlocked)
	return nil
}

package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/raidbot/core/telegram/format"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/lock"
)

const (
	msgWelcome        = "Welcome to the bot!"
	msgCancelled      = "Operation canceled."
	msgProjectExists  = "A ShillgenX account is already setup in this chat. Use /sgx_delete to start over."
	msgNoProject      = "No ShillgenX account is set up in this chat. Use /sgx_setup to create one."
	msgFlowActive     = "Another setup is already in progress in this chat. Finish it or use /cancel first."
	msgCreating       = "Creating your account. Please wait..."
	msgProjectCreated = "Thank you! Your account has been created. Now use /shillx to start raiding!"
	msgDeleted        = "ShillgenX account successfully deleted."
	msgTryAgain       = "Something went wrong. Please try again in a moment."
	msgGiveUp         = "Something went wrong and the setup was stopped. Please start again later."
	msgInviteFailed   = "I could not get this chat's invite link. Make me an admin with the right to invite users, then send your answer again."
	msgSaveFailed     = "I could not save that right now. Please send your answer again."
	msgLockFailed     = "I could not lock the chat. Make me an admin with the right to restrict members."
	msgUnlocked       = "Chat unlocked."
	msgUnlockFailed   = "I could not unlock the chat. Make me an admin with the right to restrict members."
	msgTargetNotFound = "That raid target does not exist."
	msgGoalsUsage     = "Usage: /raid_goals <target id> <comments,reposts,likes,bookmarks>"
	msgNoLocks        = "No pending unlocks."
)

func msgLocked(minutes int) string {
	return fmt.Sprintf("Chat is locked for %d minute(s).", minutes)
}

func msgEditValue(field string) string {
	return fmt.Sprintf("Send the new %s.", strings.ReplaceAll(field, "_", " "))
}

func msgFieldUpdated(field string) string {
	return fmt.Sprintf("Updated %s.", strings.ReplaceAll(field, "_", " "))
}

func msgGoalsUpdated(g domain.Goals) string {
	return fmt.Sprintf("Goals updated: %d comments, %d reposts, %d likes, %d bookmarks.",
		g.Comments, g.Reposts, g.Likes, g.Bookmarks)
}

// projectDetails renders a project as MarkdownV2.
func projectDetails(p domain.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", format.V2(p.Name))
	fmt.Fprintf(&b, "%s\n\n", format.V2(p.Description))
	fmt.Fprintf(&b, "X: %s\n", format.V2(p.XHandle))
	fmt.Fprintf(&b, "Website: %s\n", format.V2(p.Website))
	fmt.Fprintf(&b, "Telegram: %s\n", format.V2(p.InviteLink))
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", format.V2(strings.Join(p.Tags, " ")))
	}
	return b.String()
}

// targetDetails renders a target as MarkdownV2.
func targetDetails(t domain.Target) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Raid target*\n%s\n", format.V2(t.Link))
	fmt.Fprintf(&b, "Goals: %s\n", format.V2(fmt.Sprintf("%d comments, %d reposts, %d likes, %d bookmarks",
		t.Goals.Comments, t.Goals.Reposts, t.Goals.Likes, t.Goals.Bookmarks)))
	return b.String()
}

func lockStatus(deadline time.Time, now time.Time) string {
	left := deadline.Sub(now).Round(time.Minute)
	if left < time.Minute {
		left = time.Minute
	}
	return format.V2(fmt.Sprintf("Chat locked, unlocks in about %d minute(s).", int(left/time.Minute)))
}

func pendingLocks(entries []lock.Entry, now time.Time) string {
	if len(entries) == 0 {
		return msgNoLocks
	}
	var b strings.Builder
	b.WriteString("Pending unlocks:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%d at %s (in %s)", e.ChatID,
			e.Deadline.UTC().Format(time.RFC3339), e.Deadline.Sub(now).Round(time.Second))
	}
	return b.String()
}

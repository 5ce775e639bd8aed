// Package flow implements the multi-step setup conversations: which step
// follows which, which validator each step applies, and when a draft is
// ready to commit.
package flow

import (
	"time"

	"github.com/m3rciful/raidbot/core/telegram/state"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/validate"
)

// Kind identifies a flow.
type Kind string

const (
	// KindProjectSetup collects a new project.
	KindProjectSetup Kind = "project_setup"
	// KindTargetSetup collects a raid target.
	KindTargetSetup Kind = "target_setup"
	// KindProjectEdit changes one field of an existing project.
	KindProjectEdit Kind = "project_edit"
)

// MaxCommitFailures bounds how many times a finished draft may fail to commit
// before the flow is abandoned.
const MaxCommitFailures = 3

// EditDraft is the partially collected single-field edit.
type EditDraft struct {
	Field string
	Value validate.FieldValue
}

// Session is the in-progress conversation of one chat.
type Session struct {
	ChatID    int64
	OwnerID   int64
	Kind      Kind
	Step      Step
	Project   domain.Project
	Target    domain.Target
	Edit      EditDraft
	Failures  int
	StartedAt time.Time
}

// Store is the chat-keyed session registry used by flows.
type Store = state.Store[Session]

// NewStore returns an empty session store.
func NewStore() *Store {
	return state.NewStore[Session]()
}

// NewSession builds a session at the first step of kind with empty drafts.
func NewSession(chatID, ownerID int64, kind Kind, now time.Time) Session {
	return Session{
		ChatID:  chatID,
		OwnerID: ownerID,
		Kind:    kind,
		Step:    FirstStep(kind),
		Project: domain.Project{
			ChatID: chatID,
			Tags:   domain.Tags{},
			Topics: domain.EmptyTopics(),
		},
		Target:    domain.Target{ChatID: chatID},
		StartedAt: now,
	}
}

// Start opens a flow of kind for the chat. It fails with
// state.ErrDuplicateSession when the chat already has one.
func Start(store *Store, chatID, ownerID int64, kind Kind, now time.Time) (Session, error) {
	return store.Start(chatID, func() Session {
		return NewSession(chatID, ownerID, kind, now)
	})
}

// Cancel removes the chat's session when userID owns it. Anyone else is ignored.
func Cancel(store *Store, chatID, userID int64) (Session, bool) {
	return store.RemoveIf(chatID, func(s Session) bool {
		return s.OwnerID == userID
	})
}

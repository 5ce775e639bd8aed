package flow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/raidbot/core/telegram/state"
	"github.com/m3rciful/raidbot/internal/domain"
)

const (
	chatID  int64 = -100123
	ownerID int64 = 11
	otherID int64 = 22
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// validInputs holds one accepted message per input step.
var validInputs = map[Step]string{
	StepAwaitingName:         "MyProj",
	StepAwaitingDescription:  strings.Repeat("d", 25),
	StepAwaitingSocialHandle: "myproj",
	StepAwaitingWebsite:      "www.myproj.com",
	StepAwaitingTags:         "$MYP #myproj",
	StepAwaitingTargetLink:   "https://x.com/myproj/status/1",
	StepAwaitingLockDuration: "2",
	StepAwaitingEditField:    "website",
	StepAwaitingEditValue:    "myproj.io",
}

func TestProjectSetupEndToEnd(t *testing.T) {
	store := NewStore()
	_, err := Start(store, chatID, ownerID, KindProjectSetup, now)
	require.NoError(t, err)

	inputs := []string{"MyProj", strings.Repeat("x", 25), "myproj", "www.myproj.com", "$MYP #myproj"}
	var res Result
	for i, in := range inputs {
		err := store.With(chatID, func(s *Session) error {
			var aerr error
			res, aerr = Advance(s, ownerID, in)
			return aerr
		})
		require.NoError(t, err, "input %d", i)
		if i < len(inputs)-1 {
			assert.False(t, res.Complete)
		}
	}

	require.True(t, res.Complete)
	require.NotNil(t, res.Project)
	assert.Equal(t, StepComplete, res.Step)
	assert.Equal(t, "MyProj", res.Project.Name)
	assert.Equal(t, "@myproj", res.Project.XHandle)
	assert.Equal(t, "www.myproj.com", res.Project.Website)
	assert.Equal(t, domain.Tags{"$MYP", "#myproj"}, res.Project.Tags)
	assert.Equal(t, chatID, res.Project.ChatID)
	assert.Len(t, res.Project.Topics, len(domain.TopicNames))
}

func TestTargetSetupCompletes(t *testing.T) {
	s := NewSession(chatID, ownerID, KindTargetSetup, now)
	require.Equal(t, StepAwaitingTargetLink, s.Step)

	res, err := Advance(&s, ownerID, "https://x.com/p/status/9")
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingLockDuration, res.Step)

	res, err = Advance(&s, ownerID, "15")
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.NotNil(t, res.Target)
	assert.Equal(t, 15, res.Target.LockMinutes)
	assert.Equal(t, "https://x.com/p/status/9", res.Target.Link)

	_, err = Advance(&s, ownerID, "again")
	assert.ErrorIs(t, err, ErrFlowComplete)
}

func TestProjectEditFlow(t *testing.T) {
	s := NewSession(chatID, ownerID, KindProjectEdit, now)
	_, err := Advance(&s, ownerID, "colour")
	require.Error(t, err)
	assert.Equal(t, StepAwaitingEditField, s.Step)

	_, err = Advance(&s, ownerID, "handle")
	require.NoError(t, err)
	res, err := Advance(&s, ownerID, "newhandle")
	require.NoError(t, err)
	require.True(t, res.Complete)
	assert.Equal(t, "x_handle", res.Edit.Field)
	assert.Equal(t, "@newhandle", res.Edit.Value.Text)
}

func TestValidationFailureKeepsStep(t *testing.T) {
	s := NewSession(chatID, ownerID, KindProjectSetup, now)
	_, err := Advance(&s, ownerID, "MyProj")
	require.NoError(t, err)

	before := s
	res, err := Advance(&s, ownerID, "too short")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, StepAwaitingDescription, res.Step)
	assert.Equal(t, before.Step, s.Step)
	assert.Equal(t, before.Project.Description, s.Project.Description)

	_, err = Advance(&s, ownerID, strings.Repeat("a", 20))
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSocialHandle, s.Step)
}

func TestNonOwnerIgnoredAtEveryStep(t *testing.T) {
	for _, kind := range []Kind{KindProjectSetup, KindTargetSetup, KindProjectEdit} {
		s := NewSession(chatID, ownerID, kind, now)
		for s.Step != StepComplete {
			snapshot := s
			for _, in := range []string{validInputs[s.Step], "x"} {
				res, err := Advance(&s, otherID, in)
				require.NoError(t, err, "%s/%s", kind, s.Step)
				assert.True(t, res.Ignored)
				assert.Equal(t, snapshot.Step, s.Step)
				assert.Equal(t, snapshot.Project.Name, s.Project.Name)
				assert.Equal(t, snapshot.Target.Link, s.Target.Link)
				assert.Equal(t, snapshot.Edit.Field, s.Edit.Field)
			}
			_, err := Advance(&s, ownerID, validInputs[s.Step])
			require.NoError(t, err, "%s/%s", kind, snapshot.Step)
		}
	}
}

func TestCancelOwnership(t *testing.T) {
	store := NewStore()
	_, err := Start(store, chatID, ownerID, KindProjectSetup, now)
	require.NoError(t, err)

	_, ok := Cancel(store, chatID, otherID)
	assert.False(t, ok)
	require.True(t, store.Has(chatID))

	err = store.With(chatID, func(s *Session) error {
		_, aerr := Advance(s, ownerID, "MyProj")
		return aerr
	})
	require.NoError(t, err)
	got, _ := store.Get(chatID)
	assert.Equal(t, StepAwaitingDescription, got.Step)

	removed, ok := Cancel(store, chatID, ownerID)
	require.True(t, ok)
	assert.Equal(t, KindProjectSetup, removed.Kind)
	assert.False(t, store.Has(chatID))
}

func TestStartRejectsDuplicateFlow(t *testing.T) {
	store := NewStore()
	_, err := Start(store, chatID, ownerID, KindProjectSetup, now)
	require.NoError(t, err)

	_, err = Start(store, chatID, otherID, KindTargetSetup, now)
	require.True(t, errors.Is(err, state.ErrDuplicateSession))

	got, ok := store.Get(chatID)
	require.True(t, ok)
	assert.Equal(t, ownerID, got.OwnerID)
	assert.Equal(t, KindProjectSetup, got.Kind)
}

func TestRewindIsBounded(t *testing.T) {
	s := NewSession(chatID, ownerID, KindTargetSetup, now)
	_, _ = Advance(&s, ownerID, "https://x.com/a")
	_, _ = Advance(&s, ownerID, "5")
	require.Equal(t, StepComplete, s.Step)

	assert.True(t, Rewind(&s))
	assert.Equal(t, StepAwaitingLockDuration, s.Step)
	_, _ = Advance(&s, ownerID, "5")
	assert.True(t, Rewind(&s))
	_, _ = Advance(&s, ownerID, "5")
	assert.False(t, Rewind(&s))
}

func TestPromptsCoverInputSteps(t *testing.T) {
	for step := range appliers {
		assert.NotEmpty(t, Prompt(step), step.String())
	}
	assert.Contains(t, Prompt(StepAwaitingDescription), "Use case")
}

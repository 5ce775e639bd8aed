package flow

import (
	"errors"

	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/validate"
)

// Step is a position in a flow's step sequence.
type Step int

// Steps of every flow. StepComplete is shared by all of them.
const (
	StepNone Step = iota
	StepAwaitingName
	StepAwaitingDescription
	StepAwaitingSocialHandle
	StepAwaitingWebsite
	StepAwaitingTags
	StepAwaitingTargetLink
	StepAwaitingLockDuration
	StepAwaitingEditField
	StepAwaitingEditValue
	StepComplete
)

var stepNames = map[Step]string{
	StepNone:                 "none",
	StepAwaitingName:         "awaiting_name",
	StepAwaitingDescription:  "awaiting_description",
	StepAwaitingSocialHandle: "awaiting_social_handle",
	StepAwaitingWebsite:      "awaiting_website",
	StepAwaitingTags:         "awaiting_tags",
	StepAwaitingTargetLink:   "awaiting_target_link",
	StepAwaitingLockDuration: "awaiting_lock_duration",
	StepAwaitingEditField:    "awaiting_edit_field",
	StepAwaitingEditValue:    "awaiting_edit_value",
	StepComplete:             "complete",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

var sequences = map[Kind][]Step{
	KindProjectSetup: {
		StepAwaitingName,
		StepAwaitingDescription,
		StepAwaitingSocialHandle,
		StepAwaitingWebsite,
		StepAwaitingTags,
		StepComplete,
	},
	KindTargetSetup: {
		StepAwaitingTargetLink,
		StepAwaitingLockDuration,
		StepComplete,
	},
	KindProjectEdit: {
		StepAwaitingEditField,
		StepAwaitingEditValue,
		StepComplete,
	},
}

// applyFunc validates raw and stores the normalized value into the draft.
// It must leave the session untouched on error.
type applyFunc func(s *Session, raw string) error

var appliers = map[Step]applyFunc{
	StepAwaitingName: func(s *Session, raw string) error {
		v, err := validate.Name(raw)
		if err == nil {
			s.Project.Name = v
		}
		return err
	},
	StepAwaitingDescription: func(s *Session, raw string) error {
		v, err := validate.Description(raw)
		if err == nil {
			s.Project.Description = v
		}
		return err
	},
	StepAwaitingSocialHandle: func(s *Session, raw string) error {
		v, err := validate.SocialHandle(raw)
		if err == nil {
			s.Project.XHandle = v
		}
		return err
	},
	StepAwaitingWebsite: func(s *Session, raw string) error {
		v, err := validate.Website(raw)
		if err == nil {
			s.Project.Website = v
		}
		return err
	},
	StepAwaitingTags: func(s *Session, raw string) error {
		v, err := validate.TagsText(raw, false)
		if err == nil {
			s.Project.Tags = v
		}
		return err
	},
	StepAwaitingTargetLink: func(s *Session, raw string) error {
		v, err := validate.TargetLink(raw)
		if err == nil {
			s.Target.Link = v
		}
		return err
	},
	StepAwaitingLockDuration: func(s *Session, raw string) error {
		v, err := validate.LockDuration(raw)
		if err == nil {
			s.Target.LockMinutes = v
		}
		return err
	},
	StepAwaitingEditField: func(s *Session, raw string) error {
		v, err := validate.EditableField(raw)
		if err == nil {
			s.Edit.Field = v
		}
		return err
	},
	StepAwaitingEditValue: func(s *Session, raw string) error {
		v, err := validate.Field(s.Edit.Field, raw)
		if err == nil {
			s.Edit.Value = v
		}
		return err
	},
}

// ErrFlowComplete is returned by Advance once the draft is waiting to be committed.
var ErrFlowComplete = errors.New("flow: session already complete")

// FirstStep returns the initial step of kind.
func FirstStep(kind Kind) Step {
	seq := sequences[kind]
	if len(seq) == 0 {
		return StepNone
	}
	return seq[0]
}

func nextStep(kind Kind, cur Step) Step {
	seq := sequences[kind]
	for i, st := range seq {
		if st == cur && i+1 < len(seq) {
			return seq[i+1]
		}
	}
	return StepComplete
}

func lastInputStep(kind Kind) Step {
	seq := sequences[kind]
	if len(seq) < 2 {
		return StepNone
	}
	return seq[len(seq)-2]
}

// Result reports what one Advance call did.
type Result struct {
	// Ignored is set when the input came from someone other than the owner.
	Ignored bool
	// Step is the session's step after the call.
	Step Step
	// Complete is set when the call finished the flow.
	Complete bool

	Project *domain.Project
	Target  *domain.Target
	Edit    *EditDraft
}

// Advance feeds one message from userID into the session. Input from a
// non-owner is a silent no-op. A validation failure is returned with the
// session unchanged so the owner can retry the same step.
func Advance(s *Session, userID int64, raw string) (Result, error) {
	if s.OwnerID != userID {
		return Result{Ignored: true, Step: s.Step}, nil
	}
	if s.Step == StepComplete {
		return Result{Step: s.Step}, ErrFlowComplete
	}
	apply, ok := appliers[s.Step]
	if !ok {
		return Result{Step: s.Step}, errors.New("flow: no validator bound to step " + s.Step.String())
	}
	if err := apply(s, raw); err != nil {
		return Result{Step: s.Step}, err
	}
	s.Step = nextStep(s.Kind, s.Step)
	res := Result{Step: s.Step}
	if s.Step != StepComplete {
		return res, nil
	}
	res.Complete = true
	switch s.Kind {
	case KindProjectSetup:
		p := s.Project
		p.Tags = append(domain.Tags{}, s.Project.Tags...)
		res.Project = &p
	case KindTargetSetup:
		t := s.Target
		res.Target = &t
	case KindProjectEdit:
		e := s.Edit
		res.Edit = &e
	}
	return res, nil
}

// Rewind moves a complete session back to its last input step after a failed
// commit. It reports false once MaxCommitFailures is reached; the caller
// should then abandon the flow.
func Rewind(s *Session) bool {
	s.Failures++
	if s.Step == StepComplete {
		s.Step = lastInputStep(s.Kind)
	}
	return s.Failures < MaxCommitFailures
}

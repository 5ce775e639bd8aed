// Package lock silences chats for a bounded time. A lock is applied at once
// and released by a per-chat timer; a newer deadline for the same chat
// replaces the older one instead of stacking.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/internal/domain"
)

const component = "lock"

// ErrClosed is returned once the scheduler has been closed.
var ErrClosed = errors.New("lock: scheduler closed")

// Restrictor toggles a chat's write permission on the transport.
type Restrictor interface {
	SetWritePermission(ctx context.Context, chatID int64, allowed bool) error
}

// Options tunes the scheduler. Zero values select defaults.
type Options struct {
	Clock Clock
	// CallTimeout bounds each transport call made from a timer.
	CallTimeout time.Duration
	// RetryDelay is the pause before retrying a failed unlock.
	RetryDelay time.Duration
	// MaxUnlockAttempts bounds unlock retries for one entry.
	MaxUnlockAttempts int
}

// Entry describes a pending unlock.
type Entry struct {
	ChatID   int64
	Deadline time.Time
}

type pending struct {
	gen      uint64
	deadline time.Time
	timer    Timer
	attempts int
}

type slot struct {
	mu  sync.Mutex
	cur *pending
}

// Scheduler applies chat locks and arms their release.
type Scheduler struct {
	restrictor Restrictor
	opts       Options

	slots  sync.Map // int64 -> *slot
	gen    atomic.Uint64
	closed atomic.Bool
}

// NewScheduler builds a Scheduler around the transport restrictor.
func NewScheduler(r Restrictor, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = WallClock()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}
	if opts.MaxUnlockAttempts <= 0 {
		opts.MaxUnlockAttempts = 5
	}
	return &Scheduler{restrictor: r, opts: opts}
}

func (s *Scheduler) slot(chatID int64) *slot {
	v, _ := s.slots.LoadOrStore(chatID, &slot{})
	return v.(*slot)
}

// LockNow removes the chat's write permission. Calling it on a locked chat is harmless.
func (s *Scheduler) LockNow(ctx context.Context, chatID int64) error {
	sl := s.slot(chatID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if err := s.restrictor.SetWritePermission(ctx, chatID, false); err != nil {
		logger.Warn(ctx, component, "lock.apply",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return domain.Wrap(domain.CollaboratorTransport, "lock", err)
	}
	logger.Info(ctx, component, "lock.apply",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// ScheduleUnlock arms the chat's release after the given minutes. An earlier
// pending release for the chat is cancelled and replaced.
func (s *Scheduler) ScheduleUnlock(ctx context.Context, chatID int64, minutes int) (time.Time, error) {
	if minutes <= 0 {
		return time.Time{}, fmt.Errorf("lock: unlock delay must be positive, got %d", minutes)
	}
	if s.closed.Load() {
		return time.Time{}, ErrClosed
	}
	deadline := s.arm(chatID, time.Duration(minutes)*time.Minute)
	logger.Info(ctx, component, "lock.schedule",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.Int("minutes", minutes),
		slog.Time("deadline", deadline),
	)
	return deadline, nil
}

// arm replaces the chat's pending release. The generation and deadline are
// taken under the slot lock so the last caller always wins.
func (s *Scheduler) arm(chatID int64, delay time.Duration) time.Time {
	sl := s.slot(chatID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.cur != nil {
		sl.cur.timer.Stop()
	}
	gen := s.gen.Add(1)
	deadline := s.opts.Clock.Now().Add(delay)
	p := &pending{gen: gen, deadline: deadline}
	p.timer = s.opts.Clock.AfterFunc(delay, func() { s.fire(chatID, gen) })
	sl.cur = p
	return deadline
}

// fire runs when a deadline elapses. A superseded or cancelled entry carries
// a stale generation and is dropped.
func (s *Scheduler) fire(chatID int64, gen uint64) {
	if s.closed.Load() {
		return
	}
	sl := s.slot(chatID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	p := sl.cur
	if p == nil || p.gen != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.CallTimeout)
	defer cancel()
	p.attempts++
	if err := s.restrictor.SetWritePermission(ctx, chatID, true); err != nil {
		if p.attempts < s.opts.MaxUnlockAttempts {
			logger.Warn(ctx, component, "lock.release",
				slog.String("status", "retry"),
				slog.Int64("chat_id", chatID),
				slog.Int("attempts", p.attempts),
				slog.String("err", err.Error()),
			)
			p.timer = s.opts.Clock.AfterFunc(s.opts.RetryDelay, func() { s.fire(chatID, gen) })
			return
		}
		logger.Error(ctx, component, "lock.release",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.Int("attempts", p.attempts),
			slog.String("err", err.Error()),
		)
	} else {
		logger.Info(ctx, component, "lock.release",
			slog.String("status", "ok"),
			slog.Int64("chat_id", chatID),
		)
	}
	sl.cur = nil
}

// Cancel drops the chat's pending release without lifting the restriction.
func (s *Scheduler) Cancel(chatID int64) bool {
	sl := s.slot(chatID)
	sl.mu.Lock()
	p := sl.cur
	if p != nil {
		p.timer.Stop()
		sl.cur = nil
	}
	sl.mu.Unlock()
	return p != nil
}

// Unlock restores the chat's write permission now and drops any pending release.
func (s *Scheduler) Unlock(ctx context.Context, chatID int64) error {
	sl := s.slot(chatID)
	sl.mu.Lock()
	if sl.cur != nil {
		sl.cur.timer.Stop()
		sl.cur = nil
	}
	err := s.restrictor.SetWritePermission(ctx, chatID, true)
	sl.mu.Unlock()
	if err != nil {
		logger.Warn(ctx, component, "lock.unlock",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return domain.Wrap(domain.CollaboratorTransport, "unlock", err)
	}
	logger.Info(ctx, component, "lock.unlock",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// Pending lists armed releases ordered by deadline.
func (s *Scheduler) Pending() []Entry {
	var out []Entry
	s.slots.Range(func(k, v any) bool {
		sl := v.(*slot)
		sl.mu.Lock()
		if sl.cur != nil {
			out = append(out, Entry{ChatID: k.(int64), Deadline: sl.cur.deadline})
		}
		sl.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out
}

// Deadline reports the chat's pending release time.
func (s *Scheduler) Deadline(chatID int64) (time.Time, bool) {
	v, ok := s.slots.Load(chatID)
	if !ok {
		return time.Time{}, false
	}
	sl := v.(*slot)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.cur == nil {
		return time.Time{}, false
	}
	return sl.cur.deadline, true
}

// Close stops every timer. Pending releases are dropped; chats locked at that
// point stay locked.
func (s *Scheduler) Close() {
	s.closed.Store(true)
	s.slots.Range(func(_, v any) bool {
		sl := v.(*slot)
		sl.mu.Lock()
		if sl.cur != nil {
			sl.cur.timer.Stop()
			sl.cur = nil
		}
		sl.mu.Unlock()
		return true
	})
}

package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/m3rciful/raidbot/core/logger"
	tghelpers "github.com/m3rciful/raidbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Serializer runs updates of the same chat one after another, in arrival
// order, while different chats run concurrently. Each chat with pending work
// owns one goroutine that exits once its queue is empty.
//
// The bot must deliver updates synchronously (tele.Settings.Synchronous) so
// that arrival order equals Telegram's order.
type Serializer struct {
	mu       sync.Mutex
	queues   map[int64][]func()
	closed   bool
	maxQueue int
	wg       sync.WaitGroup
}

// NewSerializer builds a Serializer holding at most maxQueue pending updates
// per chat; 0 selects 100.
func NewSerializer(maxQueue int) *Serializer {
	if maxQueue <= 0 {
		maxQueue = 100
	}
	return &Serializer{queues: make(map[int64][]func()), maxQueue: maxQueue}
}

// Middleware queues the rest of the chain on the update's chat lane.
func (s *Serializer) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID, _ := tghelpers.ChatAndUser(c)
		accepted := s.submit(chatID, func() {
			if err := next(c); err != nil {
				logger.Error(tghelpers.BuildContext(c), "tg", "update.failed",
					slog.String("status", "fail"),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}
		})
		if !accepted {
			logger.Warn(tghelpers.BuildContext(c), "tg", "update.dropped",
				slog.String("status", "skip"),
				slog.Int("pending_count", s.Pending(chatID)),
			)
		}
		return nil
	}
}

func (s *Serializer) submit(key int64, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	q, active := s.queues[key]
	if len(q) >= s.maxQueue {
		return false
	}
	s.queues[key] = append(q, job)
	if !active {
		s.wg.Add(1)
		go s.drain(key)
	}
	return true
}

func (s *Serializer) drain(key int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		q := s.queues[key]
		if len(q) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		job := q[0]
		q[0] = nil
		s.queues[key] = q[1:]
		s.mu.Unlock()
		s.run(key, job)
	}
}

func (s *Serializer) run(key int64, job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(logger.Background(), "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.Int64("chat_id", key),
				slog.String("err", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	job()
}

// Pending reports the queued, not yet started updates of a chat.
func (s *Serializer) Pending(key int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[key])
}

// Close rejects new updates and waits for queued ones to finish.
func (s *Serializer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

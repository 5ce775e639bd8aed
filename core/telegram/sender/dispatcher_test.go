package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestSameKeyKeepsOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 100})
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, chat := range []int64{-1001, -1002, 7} {
			i, chat := i, chat
			require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	for chat, seq := range got {
		require.Len(t, seq, 50, "chat %d", chat)
		for i, v := range seq {
			assert.Equal(t, i, v, "chat %d out of order", chat)
		}
	}
}

func TestFloodReplyWaitsRequestedTime(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2})
	var slept []time.Duration
	d.sleep = func(_ context.Context, wait time.Duration) error {
		slept = append(slept, wait)
		return nil
	}
	calls := 0
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.text", func() error {
		calls++
		if calls == 1 {
			return tele.FloodError{RetryAfter: 3}
		}
		close(done)
		return nil
	}))
	<-done
	d.Close()

	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, slept)
	assert.Zero(t, d.ErrorCount())
}

func TestPermanentFailureIsCounted(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.text", func() error {
		calls++
		return errors.New("telegram: bad request: chat not found (400)")
	}))
	d.Close()

	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send.text", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: bad request (400)")))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
	assert.Equal(t, "bot<redacted>/sendMessage", sanitizeErrorMessage(errors.New("bot123:ABC_def/sendMessage")))
}

// Package sender runs outbound Bot API calls off the update goroutine. Jobs
// sharing a key (a chat id) run on the same lane, so a chat sees its messages
// in the order they were queued while other chats proceed in parallel.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned once Close has been called.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job's lane has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options tunes the dispatcher. Zero values select defaults.
type Options struct {
	// QueueSize is the buffer of each lane.
	QueueSize int
	// Workers is the number of lanes.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
	// MaxFloodWait caps a server-requested wait; longer waits fail the job.
	MaxFloodWait time.Duration
}

type job struct {
	ctx    context.Context
	key    int64
	action string
	run    func() error
}

// Dispatcher executes queued calls with retries.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	mu    sync.RWMutex
	shut  bool
	wg    sync.WaitGroup
	errs  atomic.Uint64
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher starts the lanes.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 30 * time.Second
	}
	if opts.MaxFloodWait <= 0 {
		opts.MaxFloodWait = 20 * time.Second
	}

	d := &Dispatcher{opts: opts, sleep: sleepCtx}
	d.lanes = make([]chan job, opts.Workers)
	d.wg.Add(opts.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, opts.QueueSize)
		go d.work(d.lanes[i])
	}
	return d
}

func (d *Dispatcher) lane(key int64) chan job {
	u := uint64(key)
	if key < 0 {
		u = uint64(-key)
	}
	return d.lanes[u%uint64(len(d.lanes))]
}

// Enqueue schedules run on the lane owning key. run may be called more than
// once when the failure looks transient.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.shut {
		return ErrQueueClosed
	}
	select {
	case d.lane(key) <- job{ctx: ctx, key: key, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.shut {
		d.mu.Unlock()
		return
	}
	d.shut = true
	for _, l := range d.lanes {
		close(l)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work(lane chan job) {
	defer d.wg.Done()
	for j := range lane {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// The job outlives the update that queued it.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			attrs := append(jobAttrs(j), slog.Duration("duration", logger.Took(start)))
			if attempt > 1 {
				logger.Info(ctx, component, "send.retry.success", append(attrs, slog.Int("attempts", attempt))...)
			} else {
				logger.Debug(ctx, component, "send.success", attrs...)
			}
			return
		}
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}
		wait := d.opts.RetryBackoff * time.Duration(attempt)
		if after, ok := netutil.RetryAfter(err); ok {
			if after > d.opts.MaxFloodWait {
				break
			}
			wait = after
		}
		logger.Debug(ctx, component, "send.retry.backoff",
			append(jobAttrs(j), slog.Int("attempts", attempt), slog.Duration("backoff", wait))...,
		)
		if serr := d.sleep(runCtx, wait); serr != nil {
			err = errors.Join(err, serr)
			break
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, component, "send.fail", append(jobAttrs(j),
		slog.String("status", "fail"),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", classifyError(err)),
		slog.Int("http_code", httpStatusFromError(err)),
		slog.Duration("duration", logger.Took(start)),
	)...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func jobAttrs(j job) []slog.Attr {
	return []slog.Attr{
		slog.String("op", j.action),
		slog.Int64("chat_id", j.key),
	}
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := netutil.RetryAfter(err); ok {
		return "flood"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		if kind := classifyError(urlErr.Err); kind != "unknown" {
			return kind
		}
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	switch status := httpStatusFromError(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage masks bot tokens that the API client embeds in URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func httpStatusFromError(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := netutil.RetryAfter(err); ok {
		return http.StatusTooManyRequests
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	// telebot renders unknown API errors as "telegram: <text> (<code>)".
	msg := err.Error()
	lo, hi := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if lo >= 0 && hi > lo+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lo+1 : hi])); convErr == nil {
			return code
		}
	}
	return 0
}

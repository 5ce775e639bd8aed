package logger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(t *testing.T, format logFormat, buf *bytes.Buffer) (*structuredHandler, *asyncWriter) {
	t.Helper()
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	return h, aw
}

func closeWriter(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(t, formatKV, buf)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, -100500)

	LogEvent(ctx, slog.New(h).With("component", "flow"), slog.LevelInfo, "flow.advance",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	closeWriter(t, aw)

	tokens := strings.Fields(buf.String())
	want := []string{"ts=", "level=INFO", "component=flow", "event=flow.advance", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=-100500"}
	if len(tokens) < len(want) {
		t.Fatalf("unexpected line: %s", buf.String())
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(t, formatJSON, buf)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	LogEvent(ctx, slog.New(h).With("component", "lock"), slog.LevelError, "lock.release",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Int("attempts", 5),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	pos := -1
	for _, pref := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"lock"`, `"event":"lock.release"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`, `"attempts":5`} {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("%s missing or out of order in %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"
	for _, tc := range []struct {
		format logFormat
		want   []string
		absent string
	}{
		{formatKV, []string{"rid=" + CompactRID(raw)}, "rid_full="},
		{formatJSON, []string{`"rid":"` + CompactRID(raw) + `"`, `"rid_full":"` + raw + `"`, `"ts_unix_nano"`}, ""},
	} {
		buf := &bytes.Buffer{}
		h, aw := newTestHandler(t, tc.format, buf)
		LogEvent(WithRID(Background(), raw), slog.New(h), slog.LevelInfo, "rid.test")
		closeWriter(t, aw)

		line := buf.String()
		for _, w := range tc.want {
			if !strings.Contains(line, w) {
				t.Fatalf("%s: expected %s in %s", tc.format, w, line)
			}
		}
		if tc.absent != "" && strings.Contains(line, tc.absent) {
			t.Fatalf("%s: unexpected %s in %s", tc.format, tc.absent, line)
		}
	}
}

func TestCompactRIDHandlesGroupChats(t *testing.T) {
	rid := BuildRID(10, -1001234567890, 77)
	got := CompactRID(rid)
	if got == rid || !strings.Contains(got, "-") {
		t.Fatalf("CompactRID(%s) = %s", rid, got)
	}
	if CompactRID("not-a-rid") != "not-a-rid" {
		t.Fatal("unexpected rewrite of a free-form rid")
	}
}

func TestFlowContextAndDurations(t *testing.T) {
	buf := &bytes.Buffer{}
	h, aw := newTestHandler(t, formatKV, buf)
	ctx := WithFlow(Background(), "target_setup", "awaiting_lock_duration")

	LogEvent(ctx, slog.New(h).With("component", "bot"), slog.LevelInfo, "flow.step",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
		slog.String("outcome", "bogus"),
		slog.String("status", "Canceled"),
	)
	closeWriter(t, aw)

	line := buf.String()
	for _, w := range []string{"flow=target_setup", "step=awaiting_lock_duration", "duration_ms=2", "backoff_ms=2000", "status=cancelled"} {
		if !strings.Contains(line, w) {
			t.Fatalf("expected %s in %s", w, line)
		}
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped: %s", line)
	}
}

func TestErrorSinkReceivesWarnings(t *testing.T) {
	main, errs := &bytes.Buffer{}, &bytes.Buffer{}
	mw := newAsyncWriter([]io.Writer{main}, 1024)
	ew := newAsyncWriter([]io.Writer{errs}, 1024)
	h := newStructuredHandler(handlerConfig{level: slog.LevelInfo, writer: mw, errWriter: ew, format: formatKV})
	log := slog.New(h)

	LogEvent(Background(), log, slog.LevelInfo, "calm")
	LogEvent(Background(), log, slog.LevelWarn, "noisy", Err(errors.New("flood")))
	LogEvent(Background(), log, slog.LevelDebug, "hidden")
	closeWriter(t, mw)
	closeWriter(t, ew)

	if n := strings.Count(main.String(), "\n"); n != 2 {
		t.Fatalf("main sink lines = %d: %s", n, main.String())
	}
	if strings.Contains(errs.String(), "calm") || !strings.Contains(errs.String(), "err=flood") {
		t.Fatalf("error sink content: %s", errs.String())
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 4)
	passed := 0
	for i := 0; i < 40; i++ {
		if s.Allow() {
			passed++
		}
	}
	if passed != 10 {
		t.Fatalf("passed = %d, want 10", passed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must pass everything")
	}
	if n, d := parseRatioSpec("3/10"); n != 3 || d != 10 {
		t.Fatalf("parseRatioSpec = %d/%d", n, d)
	}
	if n, d := parseRatioSpec("20"); n != 1 || d != 20 {
		t.Fatalf("parseRatioSpec = %d/%d", n, d)
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	if L != nil {
		t.Skip("logger already initialised")
	}
	Info(Background(), "app", "noop")
	if Component("x") != nil {
		t.Fatal("Component must be nil before init")
	}
	if got := SanitizeLimit("a\x00b\u200bcdef", 3); got != "abc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}

package state

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testSession struct {
	Owner int64
	Step  int
}

func TestStoreStartRejectsDuplicate(t *testing.T) {
	s := NewStore[testSession]()
	if _, err := s.Start(1, func() testSession { return testSession{Owner: 10} }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.With(1, func(ts *testSession) error { ts.Step = 3; return nil }); err != nil {
		t.Fatalf("with: %v", err)
	}

	_, err := s.Start(1, func() testSession { return testSession{Owner: 20} })
	if !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
	got, ok := s.Get(1)
	if !ok || got.Owner != 10 || got.Step != 3 {
		t.Fatalf("existing session changed: %+v ok=%v", got, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}
}

func TestStoreWithMissing(t *testing.T) {
	s := NewStore[testSession]()
	err := s.With(42, func(*testSession) error { return nil })
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestStoreRemoveIf(t *testing.T) {
	s := NewStore[testSession]()
	_, _ = s.Start(-100, func() testSession { return testSession{Owner: 7} })

	if _, ok := s.RemoveIf(-100, func(ts testSession) bool { return ts.Owner == 8 }); ok {
		t.Fatal("predicate false must not remove")
	}
	if !s.Has(-100) {
		t.Fatal("session should remain")
	}
	removed, ok := s.RemoveIf(-100, func(ts testSession) bool { return ts.Owner == 7 })
	if !ok || removed.Owner != 7 {
		t.Fatalf("expected removal, got %+v ok=%v", removed, ok)
	}
	if s.Has(-100) {
		t.Fatal("session should be gone")
	}
	if _, ok := s.Remove(-100); ok {
		t.Fatal("second remove must report absent")
	}
	if _, err := s.Start(-100, func() testSession { return testSession{} }); err != nil {
		t.Fatalf("restart after removal: %v", err)
	}
}

func TestStoreSerializesPerChat(t *testing.T) {
	s := NewStore[testSession]()
	_, _ = s.Start(5, func() testSession { return testSession{} })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.With(5, func(ts *testSession) error {
				ts.Step++
				return nil
			})
		}()
	}
	wg.Wait()
	got, _ := s.Get(5)
	if got.Step != 100 {
		t.Fatalf("lost updates: step=%d", got.Step)
	}
}

func TestStoreUnrelatedChatsDoNotContend(t *testing.T) {
	s := NewStore[testSession]()
	_, _ = s.Start(1, func() testSession { return testSession{} })
	_, _ = s.Start(2, func() testSession { return testSession{} })

	hold := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = s.With(1, func(*testSession) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = s.With(2, func(ts *testSession) error { ts.Step = 1; return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 2 blocked by chat 1")
	}
	close(hold)
}

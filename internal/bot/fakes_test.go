package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/lock"
	"github.com/m3rciful/raidbot/internal/validate"
)

type permCall struct {
	chatID  int64
	allowed bool
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []Outgoing
	deleted   []int
	perms     []permCall
	admins    map[int64][]int64
	invite    string
	inviteErr error
	permErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{admins: map[int64][]int64{}, invite: "https://t.me/+raiders"}
}

func (f *fakeTransport) Send(_ context.Context, msg Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) Administrators(_ context.Context, chatID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[chatID], nil
}

func (f *fakeTransport) SetWritePermission(_ context.Context, chatID int64, allowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permErr != nil {
		return f.permErr
	}
	f.perms = append(f.perms, permCall{chatID: chatID, allowed: allowed})
	return nil
}

func (f *fakeTransport) ExportInviteLink(context.Context, int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invite, f.inviteErr
}

func (f *fakeTransport) BotUsername() string { return "raid_bot" }

func (f *fakeTransport) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeTransport) last(chatID int64) string {
	t := f.texts(chatID)
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

// writable reports the chat's permission after the last call; chats never
// touched count as writable.
func (f *fakeTransport) writable(chatID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.perms) - 1; i >= 0; i-- {
		if f.perms[i].chatID == chatID {
			return f.perms[i].allowed
		}
	}
	return true
}

type memStore struct {
	mu        sync.Mutex
	seq       int
	projects  map[int64]domain.Project
	targets   map[string]domain.Target
	insertErr error
	findErr   error
}

func newMemStore() *memStore {
	return &memStore{projects: map[int64]domain.Project{}, targets: map[string]domain.Target{}}
}

func (m *memStore) InsertProject(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.projects[p.ChatID]; ok {
		return domain.ErrDuplicateProject
	}
	m.seq++
	p.ID = fmt.Sprintf("p-%d", m.seq)
	m.projects[p.ChatID] = *p
	return nil
}

func (m *memStore) FindProjectByChat(_ context.Context, chatID int64) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return domain.Project{}, m.findErr
	}
	p, ok := m.projects[chatID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memStore) FindProjectByID(_ context.Context, id string) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return domain.Project{}, m.findErr
	}
	for _, p := range m.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrNotFound
}

func (m *memStore) DeleteProjectByChat(_ context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.projects[chatID]
	delete(m.projects, chatID)
	return ok, nil
}

func (m *memStore) UpdateProjectField(_ context.Context, chatID int64, field string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[chatID]
	if !ok {
		return domain.ErrNotFound
	}
	switch field {
	case validate.FieldName:
		p.Name = value.(string)
	case validate.FieldDescription:
		p.Description = value.(string)
	case validate.FieldXHandle:
		p.XHandle = value.(string)
	case validate.FieldWebsite:
		p.Website = value.(string)
	case validate.FieldTags:
		p.Tags = value.(domain.Tags)
	default:
		return errors.New("not editable")
	}
	m.projects[chatID] = p
	return nil
}

func (m *memStore) InsertTarget(_ context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.seq++
	t.ID = fmt.Sprintf("t-%d", m.seq)
	t.CreatedAt = time.Date(2024, 3, 1, 12, 0, m.seq, 0, time.UTC)
	m.targets[t.ID] = *t
	return nil
}

func (m *memStore) FindTargetByID(_ context.Context, id string) (domain.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		return domain.Target{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTargetsByChat(_ context.Context, chatID int64, limit int) ([]domain.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Target
	for _, t := range m.targets {
		if t.ChatID == chatID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateTargetGoals(_ context.Context, chatID int64, targetID string, goals domain.Goals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[targetID]
	if !ok || t.ChatID != chatID {
		return domain.ErrNotFound
	}
	t.Goals = goals
	m.targets[targetID] = t
	return nil
}

type fakeGen struct {
	topics     domain.Topics
	prefillErr error
	post       string
	postErr    error
	prefills   int
}

func (g *fakeGen) PrefillTopics(context.Context, string) (domain.Topics, error) {
	g.prefills++
	if g.prefillErr != nil {
		return nil, g.prefillErr
	}
	return g.topics, nil
}

func (g *fakeGen) GeneratePost(context.Context, domain.Project, string, string) (string, error) {
	return g.post, g.postErr
}

type fakeTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	clock   *fakeClock
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) lock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{at: c.now.Add(d), seq: c.seq, fn: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due *fakeTimer
		idx := -1
		for i, t := range c.timers {
			if t.stopped || t.at.After(target) {
				continue
			}
			if due == nil || t.at.Before(due.at) || (t.at.Equal(due.at) && t.seq < due.seq) {
				due, idx = t, i
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
		c.now = due.at
		c.mu.Unlock()
		due.fn()
	}
}

type harness struct {
	tr    *fakeTransport
	store *memStore
	gen   *fakeGen
	clock *fakeClock
	sched *lock.Scheduler
	o     *Orchestrator
}

const (
	chatA  int64 = -100
	chatB  int64 = -200
	admin  int64 = 7
	member int64 = 9
)

func newHarness() *harness {
	h := &harness{
		tr:    newFakeTransport(),
		store: newMemStore(),
		gen:   &fakeGen{topics: domain.EmptyTopics(), post: "Raiders assemble!"},
		clock: newFakeClock(),
	}
	h.tr.admins[chatA] = []int64{admin}
	h.tr.admins[chatB] = []int64{admin}
	h.sched = lock.NewScheduler(h.tr, lock.Options{Clock: h.clock})
	h.o = New(h.tr, h.store, h.store, h.gen, h.sched, Options{Now: h.clock.Now})
	return h
}

func msg(chatID, userID int64, text string) Inbound {
	return Inbound{ChatID: chatID, UserID: userID, Text: text}
}

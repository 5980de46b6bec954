package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/century/internal/auth"
	"github.com/lox/century/internal/store"
)

type note struct {
	msg string
	sev Severity
}

type recorder struct {
	mu       sync.Mutex
	notes    []note
	statuses []Status
	views    []View
	answer   bool
	prompts  []string
}

func newRecorder() *recorder {
	return &recorder{answer: true}
}

func (r *recorder) Notify(msg string, sev Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{msg, sev})
}

func (r *recorder) Status(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) Confirm(prompt string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.answer
}

func (r *recorder) SessionChanged(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) setAnswer(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answer = ok
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.msg
	}
	return out
}

func (r *recorder) lastNote() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

func (r *recorder) statusKinds() []StatusKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatusKind, len(r.statuses))
	for i, s := range r.statuses {
		out[i] = s.Kind
	}
	return out
}

// flakyStore fails writes while failing is set, and can hold the next
// write until released.
type flakyStore struct {
	store.Store
	mu      sync.Mutex
	failing bool
	writes  int
	entered chan struct{}
	release chan struct{}
}

// holdNextWrite makes the next write close entered and then block until
// release is closed.
func (s *flakyStore) holdNextWrite() (entered, release chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entered = make(chan struct{})
	s.release = make(chan struct{})
	return s.entered, s.release
}

func (s *flakyStore) wait() {
	s.mu.Lock()
	entered, release := s.entered, s.release
	s.entered, s.release = nil, nil
	s.mu.Unlock()
	if entered != nil {
		close(entered)
		<-release
	}
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *flakyStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failing {
		return errDiskFull
	}
	return nil
}

func (s *flakyStore) Create(ctx context.Context, userID string, state []byte, meta store.Metadata) (string, error) {
	s.wait()
	if err := s.check(); err != nil {
		return "", err
	}
	return s.Store.Create(ctx, userID, state, meta)
}

func (s *flakyStore) Update(ctx context.Context, id string, state []byte, meta store.Metadata) error {
	s.wait()
	if err := s.check(); err != nil {
		return err
	}
	return s.Store.Update(ctx, id, state, meta)
}

type harness struct {
	c     *Controller
	clock *quartz.Mock
	rec   *recorder
	store *flakyStore
}

func newHarness(t *testing.T, autoSave bool) *harness {
	t.Helper()
	clock := quartz.NewMock(t)
	rec := newRecorder()
	st := &flakyStore{Store: store.NewMemoryStore()}
	cfg := DefaultConfig()
	cfg.AutoSave = autoSave
	cfg.Clock = clock

	c := New(st, zerolog.Nop(), cfg,
		WithNotifier(rec),
		WithConfirmer(rec),
		WithListener(rec),
	)
	t.Cleanup(func() { c.cancel() })
	return &harness{c: c, clock: clock, rec: rec, store: st}
}

func (h *harness) signIn(userID string) {
	h.c.SetIdentity(&auth.Identity{UserID: userID, Email: userID + "@example.com"})
}

func (h *harness) start(t *testing.T, names ...string) {
	t.Helper()
	require.NoError(t, h.c.StartSession(names...))
}

func (h *harness) check(t *testing.T, checker string, sums map[string]int) Report {
	t.Helper()
	report, err := h.c.SubmitCheck(checker, sums)
	require.NoError(t, err)
	return report
}

func (h *harness) games(t *testing.T) []store.Metadata {
	t.Helper()
	games, err := h.c.ListGames(context.Background())
	require.NoError(t, err)
	return games
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func scores(v View) map[string]int {
	out := make(map[string]int, len(v.Players))
	for _, p := range v.Players {
		out[p.Name] = p.Score
	}
	return out
}

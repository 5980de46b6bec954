// Package session runs a single game of Century from setup to its winner.
//
// The Controller owns the roster, ledger and undo buffer, serializes every
// change behind one lock and talks to the outside world through three small
// collaborators: a Notifier for toasts and the save indicator, a Confirmer
// that is asked before anything destructive, and a store.Store for saved
// games. Collaborators are always called without the lock held.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/century/internal/auth"
	"github.com/lox/century/internal/game"
	"github.com/lox/century/internal/store"
)

// Phase is where a session is in its lifecycle
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseConcluded:
		return "concluded"
	default:
		return "uninitialized"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Config controls timers and auto-save
type Config struct {
	AutoSave      bool
	AutoSaveDelay time.Duration
	StatusRevert  time.Duration
	Clock         quartz.Clock
}

// DefaultConfig returns the delays the game has always used.
func DefaultConfig() Config {
	return Config{
		AutoSave:      true,
		AutoSaveDelay: time.Second,
		StatusRevert:  3 * time.Second,
	}
}

// Option configures a Controller
type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) { c.confirmer = cf }
}

// WithListener adds a subscriber for state changes. May be repeated.
func WithListener(l Listener) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, l) }
}

// Report is what a resolved CHECK returns to the caller
type Report struct {
	Resolution game.Resolution
	Narrative  []string
	Severity   Severity
}

// View is a read-only copy of everything the presentation layer shows.
type View struct {
	Phase          Phase              `json:"phase"`
	User           string             `json:"-"`
	Setup          []string           `json:"-"`
	Players        []game.Player      `json:"players"`
	Winner         string             `json:"winner,omitempty"`
	Rounds         []game.RoundRecord `json:"rounds"`
	Table          game.ScoreTable    `json:"-"`
	RecordID       string             `json:"record_id,omitempty"`
	PendingChecker string             `json:"pending_checker,omitempty"`
	CanUndo        bool               `json:"can_undo"`
	StartTime      time.Time          `json:"start_time"`
	Status         Status             `json:"status"`
}

// Active returns the players still in the game
func (v View) Active() []game.Player {
	var out []game.Player
	for _, p := range v.Players {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// Controller coordinates one game session. All methods are safe for
// concurrent use.
type Controller struct {
	cfg       Config
	store     store.Store
	logger    zerolog.Logger
	notifier  Notifier
	confirmer Confirmer
	listeners []Listener

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	identity  *auth.Identity
	setup     *game.Roster
	roster    *game.Roster // nil until a session starts
	ledger    *game.Ledger
	undo      game.UndoBuffer
	pending   string
	startTime time.Time
	lastStamp time.Time
	recordID  string
	epoch     uint64 // bumped whenever the session is replaced or cleared
	rev       uint64 // bumped on every change
	outbox    []func()

	// saveMu is held from snapshot capture through the store write, so
	// saves land in the order their state was captured. Taken before mu.
	saveMu   sync.Mutex
	autosave *debouncer
	status   *statusIndicator
}

// New creates a controller with an empty setup roster and no session.
func New(st store.Store, logger zerolog.Logger, cfg Config, opts ...Option) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.AutoSaveDelay <= 0 {
		cfg.AutoSaveDelay = time.Second
	}
	if cfg.StatusRevert <= 0 {
		cfg.StatusRevert = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		store:     st,
		logger:    logger.With().Str("component", "session").Logger(),
		notifier:  nopNotifier{},
		confirmer: AutoConfirm,
		ctx:       ctx,
		cancel:    cancel,
		setup:     &game.Roster{},
		ledger:    game.NewLedger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.autosave = newDebouncer(cfg.Clock, cfg.AutoSaveDelay)
	c.status = newStatusIndicator(cfg.Clock, cfg.StatusRevert, func(s Status) {
		c.notifier.Status(s)
		c.mu.Lock()
		c.broadcastLocked()
		c.unlock()
	})
	return c
}

// unlock releases the lock and then delivers anything queued while it was
// held, so collaborators are free to call back into the controller.
func (c *Controller) unlock() {
	out := c.outbox
	c.outbox = nil
	c.mu.Unlock()
	for _, fn := range out {
		fn()
	}
}

func (c *Controller) notify(msg string, sev Severity) {
	c.outbox = append(c.outbox, func() { c.notifier.Notify(msg, sev) })
}

func (c *Controller) changed() {
	c.rev++
	c.broadcastLocked()
}

func (c *Controller) broadcastLocked() {
	if len(c.listeners) == 0 {
		return
	}
	view := c.viewLocked()
	for _, l := range c.listeners {
		l := l
		c.outbox = append(c.outbox, func() { l.SessionChanged(view) })
	}
}

// fail reports err as an error toast and returns it
func (c *Controller) fail(err error) error {
	c.notify(errorMessage(err), SeverityError)
	return err
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrInsufficientPlayers):
		return "Need at least 2 players!"
	case errors.Is(err, game.ErrNothingToUndo):
		return "Nothing to undo"
	}
	return err.Error()
}

// now returns the clock time, never earlier than the last round stamp.
func (c *Controller) now() time.Time {
	t := c.cfg.Clock.Now()
	if t.Before(c.lastStamp) {
		t = c.lastStamp
	}
	c.lastStamp = t
	return t
}

func (c *Controller) phaseLocked() Phase {
	switch {
	case c.roster == nil:
		return PhaseUninitialized
	case c.roster.IsConcluded():
		return PhaseConcluded
	default:
		return PhaseActive
	}
}

// resetLocked discards the live session and any pending auto-save.
func (c *Controller) resetLocked() {
	c.autosave.Cancel()
	c.roster = nil
	c.ledger = game.NewLedger()
	c.undo.Clear()
	c.pending = ""
	c.startTime = time.Time{}
	c.lastStamp = time.Time{}
	c.recordID = ""
	c.epoch++
}

// confirm asks the Confirmer with the lock released. It fails with
// ErrCancelled if the user declines or the session changed while the prompt
// was open.
func (c *Controller) confirm(prompt string) error {
	rev := c.rev
	c.mu.Unlock()
	ok := c.confirmer.Confirm(prompt)
	c.mu.Lock()
	if !ok {
		return ErrCancelled
	}
	if rev != c.rev {
		return fmt.Errorf("%w: game changed while waiting for confirmation", ErrCancelled)
	}
	return nil
}

// SetIdentity signs a user in, or out when id is nil. Signing out or
// switching users drops the current session and setup roster.
func (c *Controller) SetIdentity(id *auth.Identity) {
	c.mu.Lock()
	defer c.unlock()

	if id != nil && c.identity != nil && c.identity.UserID == id.UserID {
		copied := *id
		c.identity = &copied
		return
	}

	c.resetLocked()
	c.setup = &game.Roster{}
	if id == nil {
		if c.identity != nil {
			c.logger.Info().Str("user_id", c.identity.UserID).Msg("signed out")
		}
		c.identity = nil
	} else {
		copied := *id
		c.identity = &copied
		c.logger.Info().Str("user_id", id.UserID).Msg("signed in")
	}
	c.changed()
}

// Identity returns the signed-in user, or nil
func (c *Controller) Identity() *auth.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

// AddPlayer adds a name to the setup roster.
func (c *Controller) AddPlayer(name string) error {
	c.mu.Lock()
	defer c.unlock()

	added, err := c.setup.Add(name)
	if err != nil {
		return c.fail(err)
	}
	c.notify(fmt.Sprintf("%s added!", added), SeveritySuccess)
	c.changed()
	return nil
}

// RemovePlayer removes a name from the setup roster.
func (c *Controller) RemovePlayer(name string) error {
	c.mu.Lock()
	defer c.unlock()

	removed, err := c.setup.Remove(name)
	if err != nil {
		return c.fail(err)
	}
	c.notify(fmt.Sprintf("%s removed", removed), SeverityInfo)
	c.changed()
	return nil
}

// StartSession starts a new game with names, or with the setup roster when
// no names are given. Any game in progress is replaced once the Confirmer
// agrees.
func (c *Controller) StartSession(names ...string) error {
	c.mu.Lock()
	defer c.unlock()

	if len(names) == 0 {
		names = c.setup.Names()
	}
	roster, err := game.NewRoster(names...)
	if err != nil {
		return c.fail(err)
	}
	if roster.Len() < game.MinPlayers {
		return c.fail(fmt.Errorf("%w: have %d", game.ErrInsufficientPlayers, roster.Len()))
	}

	if err := c.confirm(fmt.Sprintf("Start game with %s?", strings.Join(roster.Names(), ", "))); err != nil {
		return err
	}

	c.resetLocked()
	c.roster = roster
	c.startTime = c.cfg.Clock.Now()
	c.setup = &game.Roster{}

	c.logger.Info().Strs("players", roster.Names()).Msg("game started")
	c.notify("Game started!", SeveritySuccess)
	c.changed()
	return nil
}

// EndSession discards the current game after confirmation. Unsaved rounds
// are lost and any pending auto-save is cancelled.
func (c *Controller) EndSession() error {
	c.mu.Lock()
	defer c.unlock()

	if c.roster == nil {
		return c.fail(game.ErrSessionNotActive)
	}
	if err := c.confirm("End this game? All unsaved progress will be lost. Consider saving it first!"); err != nil {
		return err
	}

	c.logger.Info().Int("rounds", c.ledger.Len()).Str("record_id", c.recordID).Msg("game ended")
	c.resetLocked()
	c.notify("Game ended", SeverityInfo)
	c.changed()
	return nil
}

// SelectChecker records who called CHECK for the round being entered. An
// empty name clears the selection.
func (c *Controller) SelectChecker(name string) error {
	c.mu.Lock()
	defer c.unlock()

	if c.roster == nil {
		return c.fail(game.ErrSessionNotActive)
	}
	if strings.TrimSpace(name) == "" {
		c.pending = ""
		c.changed()
		return nil
	}
	resolved, ok := c.roster.Lookup(name)
	if !ok {
		return c.fail(fmt.Errorf("%w: %s", game.ErrInvalidChecker, name))
	}
	if p, _ := c.roster.Get(resolved); !p.IsActive() {
		return c.fail(fmt.Errorf("%w: %s is eliminated", game.ErrInvalidChecker, resolved))
	}
	c.pending = resolved
	c.changed()
	return nil
}

// SubmitCheck resolves one round. checker may be empty to use the selected
// checker; sums are keyed by player name, matched ignoring case. On any
// error the session is left exactly as it was.
func (c *Controller) SubmitCheck(checker string, sums map[string]int) (Report, error) {
	c.mu.Lock()
	defer c.unlock()

	switch c.phaseLocked() {
	case PhaseUninitialized:
		return Report{}, c.fail(game.ErrSessionNotActive)
	case PhaseConcluded:
		return Report{}, c.fail(ErrSessionConcluded)
	}

	if strings.TrimSpace(checker) == "" {
		checker = c.pending
	}
	if checker == "" {
		return Report{}, c.fail(fmt.Errorf("%w: please select who called CHECK", game.ErrInvalidChecker))
	}
	if resolved, ok := c.roster.Lookup(checker); ok {
		checker = resolved
	}
	canonical := make(map[string]int, len(sums))
	for name, sum := range sums {
		if resolved, ok := c.roster.Lookup(name); ok {
			name = resolved
		}
		if _, dup := canonical[name]; dup {
			return Report{}, c.fail(fmt.Errorf("%w: %s", game.ErrDuplicateScore, name))
		}
		canonical[name] = sum
	}

	res, err := game.Resolve(c.roster, checker, canonical)
	if err != nil {
		return Report{}, c.fail(err)
	}

	c.undo.Capture(c.roster, c.ledger, c.pending)
	c.roster.Apply(res)
	c.ledger.Append(res.Record(c.now()))
	c.pending = ""

	report := Report{Resolution: res, Narrative: res.Narrative(), Severity: SeveritySuccess}
	if res.Outcome == game.CheckerLost {
		report.Severity = SeverityError
	}

	c.logger.Info().
		Int("round", c.ledger.Len()).
		Str("checker", res.Checker).
		Str("outcome", res.Outcome.String()).
		Int("penalty", res.TotalPenalty()).
		Strs("eliminated", res.NewlyEliminated).
		Msg("round resolved")

	c.notify(strings.Join(report.Narrative, "\n"), report.Severity)
	if res.Concluded() {
		c.logger.Info().Str("winner", res.Winner).Int("rounds", c.ledger.Len()).Msg("game concluded")
		c.notify(fmt.Sprintf("%s wins!", res.Winner), SeveritySuccess)
	}
	c.changed()
	c.scheduleAutoSaveLocked()
	return report, nil
}

// UndoLastRound restores the state from just before the last round, after
// confirmation. Only one round can be undone.
func (c *Controller) UndoLastRound() error {
	c.mu.Lock()
	defer c.unlock()

	if c.roster == nil {
		return c.fail(game.ErrSessionNotActive)
	}
	if !c.undo.Available(c.ledger) {
		return c.fail(game.ErrNothingToUndo)
	}
	if err := c.confirm("Undo the last round?"); err != nil {
		return err
	}

	snap, err := c.undo.Restore(c.ledger)
	if err != nil {
		return c.fail(err)
	}
	roster, err := game.RosterFromPlayers(snap.Players)
	if err != nil {
		return c.fail(err)
	}
	c.roster = roster
	c.ledger.ReplaceAll(snap.Rounds)
	c.pending = snap.PendingChecker

	c.logger.Info().Int("rounds", c.ledger.Len()).Msg("last round undone")
	c.notify("Last round undone", SeverityInfo)
	c.changed()
	c.scheduleAutoSaveLocked()
	return nil
}

// View returns a copy of the current session state
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Phase:     c.phaseLocked(),
		Setup:     c.setup.Names(),
		RecordID:  c.recordID,
		StartTime: c.startTime,
		Status:    c.status.Current(),
	}
	if c.identity != nil {
		v.User = c.identity.UserID
		if c.identity.Email != "" {
			v.User = c.identity.Email
		}
	}
	if c.roster == nil {
		return v
	}
	v.Players = c.roster.Players()
	v.Rounds = c.ledger.Records()
	v.Table = game.BuildScoreTable(c.roster, c.ledger)
	v.PendingChecker = c.pending
	v.CanUndo = c.undo.Available(c.ledger)
	if w, ok := c.roster.Winner(); ok {
		v.Winner = w.Name
	}
	return v
}

// Phase returns the current lifecycle phase
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

// Close cancels the status timer and writes any pending auto-save now.
func (c *Controller) Close() error {
	if c.autosave.Pending() {
		c.logger.Debug().Msg("flushing pending auto-save")
		c.autosave.Flush()
	}
	c.status.Stop()
	c.cancel()
	return nil
}

// snapshot is a saved-game payload captured under the lock
type snapshot struct {
	epoch  uint64
	userID string
	state  []byte
	meta   store.Metadata
}

func (c *Controller) captureLocked() (snapshot, error) {
	s := NewState(c.roster, c.ledger, c.startTime)
	data, err := json.Marshal(s)
	if err != nil {
		return snapshot{}, fmt.Errorf("encode game state: %w", err)
	}
	meta := s.Metadata()
	meta.UpdatedAt = c.cfg.Clock.Now()
	return snapshot{epoch: c.epoch, userID: c.identity.UserID, state: data, meta: meta}, nil
}

// Save writes the current game to the store, creating the saved game on
// first use and updating it afterwards.
func (c *Controller) Save(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.identity == nil {
		err := c.fail(ErrNotAuthenticated)
		c.unlock()
		return err
	}
	if c.roster == nil {
		err := c.fail(game.ErrSessionNotActive)
		c.unlock()
		return err
	}
	snap, err := c.captureLocked()
	c.unlock()
	if err != nil {
		return err
	}

	if err := c.persistLocked(ctx, snap, true); err != nil {
		c.notifier.Notify("Failed to save game. Please try again.", SeverityError)
		return err
	}
	return nil
}

// RequestAutoSave (re)starts the auto-save delay. Rapid calls collapse into
// one write of the latest state.
func (c *Controller) RequestAutoSave() {
	c.mu.Lock()
	defer c.unlock()
	c.scheduleAutoSaveLocked()
}

func (c *Controller) scheduleAutoSaveLocked() {
	if !c.cfg.AutoSave || c.identity == nil || c.roster == nil || c.ledger.Len() == 0 {
		return
	}
	epoch := c.epoch
	c.autosave.Trigger(func() { c.autoSave(epoch) })
}

func (c *Controller) autoSave(epoch uint64) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if epoch != c.epoch || c.identity == nil || c.roster == nil || c.ledger.Len() == 0 {
		c.mu.Unlock()
		return
	}
	snap, err := c.captureLocked()
	c.mu.Unlock()
	if err != nil {
		c.logger.Error().Err(err).Msg("auto-save capture failed")
		return
	}

	if err := c.persistLocked(c.ctx, snap, false); err != nil {
		c.logger.Warn().Err(err).Msg("auto-save failed")
	}
}

// persistLocked writes a captured snapshot. The caller holds saveMu from
// capture until here, so a write never lands on top of a newer one. A
// snapshot from a session that has since been replaced is dropped.
func (c *Controller) persistLocked(ctx context.Context, snap snapshot, announce bool) error {
	c.mu.Lock()
	if snap.epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug().Msg("dropping save for a replaced session")
		return nil
	}
	id := c.recordID
	c.mu.Unlock()

	c.status.Set(Status{Message: statusSaving, Kind: StatusSaving})

	var err error
	created := false
	if id == "" {
		id, err = c.store.Create(ctx, snap.userID, snap.state, snap.meta)
		created = err == nil
	} else {
		err = c.store.Update(ctx, id, snap.state, snap.meta)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("record_id", id).Msg("save failed")
		c.status.Set(Status{Message: statusFailed, Kind: StatusError})
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	c.logger.Debug().Str("record_id", id).Int("rounds", snap.meta.TotalRounds).Bool("completed", snap.meta.IsCompleted).Msg("game saved")
	c.status.Set(Status{Message: statusConnected, Kind: StatusConnected})

	c.mu.Lock()
	if created && snap.epoch == c.epoch {
		c.recordID = id
		c.changed()
	}
	if announce {
		if created {
			c.notify("Game saved successfully!", SeveritySuccess)
		} else {
			c.notify("Game saved", SeveritySuccess)
		}
	}
	c.unlock()
	return nil
}

// ListGames returns the signed-in user's saved games, newest first.
func (c *Controller) ListGames(ctx context.Context) ([]store.Metadata, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	games, err := c.store.List(ctx, userID)
	if err != nil {
		c.logger.Error().Err(err).Msg("list saved games failed")
		c.notifier.Notify("Error loading saved games", SeverityError)
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return games, nil
}

// LoadGame replaces the live session with a saved game. Completed games can
// be listed but not resumed.
func (c *Controller) LoadGame(ctx context.Context, id string) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	rec, err := c.ownedRecord(ctx, userID, id)
	if err != nil {
		return err
	}
	if rec.IsCompleted {
		c.notifier.Notify("This game is already finished", SeverityInfo)
		return ErrGameCompleted
	}

	state, err := DecodeState(rec.State)
	if err != nil {
		c.notifier.Notify("Saved game could not be read", SeverityError)
		return err
	}
	roster, ledger, start, err := state.Restore()
	if err != nil {
		c.notifier.Notify("Saved game could not be read", SeverityError)
		return err
	}

	c.mu.Lock()
	defer c.unlock()
	if c.identity == nil || c.identity.UserID != userID {
		return c.fail(ErrNotAuthenticated)
	}
	c.resetLocked()
	c.roster = roster
	c.ledger = ledger
	c.startTime = start
	c.recordID = rec.ID
	if last, ok := ledger.Last(); ok {
		c.lastStamp = last.Timestamp
	}

	c.logger.Info().Str("record_id", rec.ID).Int("rounds", ledger.Len()).Msg("game loaded")
	c.notify("Game loaded!", SeveritySuccess)
	c.changed()
	return nil
}

// DeleteGame removes a saved game after confirmation. Deleting the game
// that is currently loaded detaches it, so the next save creates a new one.
func (c *Controller) DeleteGame(ctx context.Context, id string) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	if _, err := c.ownedRecord(ctx, userID, id); err != nil {
		return err
	}
	if !c.confirmer.Confirm("Are you sure you want to delete this saved game? This cannot be undone.") {
		return ErrCancelled
	}

	c.saveMu.Lock()
	err = c.store.Delete(ctx, id)
	c.saveMu.Unlock()
	if err != nil {
		c.logger.Error().Err(err).Str("record_id", id).Msg("delete saved game failed")
		c.notifier.Notify("Error deleting game", SeverityError)
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	c.mu.Lock()
	defer c.unlock()
	if c.recordID == id {
		c.recordID = ""
		c.changed()
	}
	c.logger.Info().Str("record_id", id).Msg("saved game deleted")
	c.notify("Game deleted", SeveritySuccess)
	return nil
}

func (c *Controller) userID() (string, error) {
	c.mu.Lock()
	defer c.unlock()
	if c.identity == nil {
		return "", c.fail(ErrNotAuthenticated)
	}
	return c.identity.UserID, nil
}

// ownedRecord fetches a saved game, hiding other users' games as not found.
func (c *Controller) ownedRecord(ctx context.Context, userID, id string) (store.Record, error) {
	rec, err := c.store.Get(ctx, id)
	if err == nil && rec.UserID != userID {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		c.notifier.Notify("Saved game not found", SeverityError)
		return store.Record{}, err
	}
	if err != nil {
		c.logger.Error().Err(err).Str("record_id", id).Msg("load saved game failed")
		c.notifier.Notify("Error loading game", SeverityError)
		return store.Record{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return rec, nil
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/century/internal/auth"
	"github.com/lox/century/internal/game"
	"github.com/lox/century/internal/store"
)

func TestStartSession(t *testing.T) {
	t.Run("needs two players", func(t *testing.T) {
		h := newHarness(t, false)
		require.NoError(t, h.c.AddPlayer("Alice"))

		err := h.c.StartSession()
		assert.ErrorIs(t, err, game.ErrInsufficientPlayers)
		assert.Equal(t, PhaseUninitialized, h.c.Phase())
		assert.Equal(t, "Need at least 2 players!", h.rec.lastNote().msg)
	})

	t.Run("uses setup roster", func(t *testing.T) {
		h := newHarness(t, false)
		require.NoError(t, h.c.AddPlayer("  Alice "))
		require.NoError(t, h.c.AddPlayer("Bob"))
		assert.ErrorIs(t, h.c.AddPlayer("alice"), game.ErrDuplicatePlayerName)
		assert.ErrorIs(t, h.c.AddPlayer("   "), game.ErrEmptyPlayerName)
		require.NoError(t, h.c.AddPlayer("Carol"))
		require.NoError(t, h.c.RemovePlayer("carol"))

		require.NoError(t, h.c.StartSession())

		v := h.c.View()
		assert.Equal(t, PhaseActive, v.Phase)
		assert.Empty(t, v.Setup)
		require.Len(t, v.Players, 2)
		for _, p := range v.Players {
			assert.Zero(t, p.Score)
			assert.False(t, p.Eliminated)
		}
		assert.Equal(t, h.clock.Now(), v.StartTime)
		assert.Contains(t, h.rec.messages(), "Alice added!")
		assert.Contains(t, h.rec.messages(), "Carol removed")
		assert.Contains(t, h.rec.prompts, "Start game with Alice, Bob?")
	})

	t.Run("declined", func(t *testing.T) {
		h := newHarness(t, false)
		h.rec.setAnswer(false)

		err := h.c.StartSession("A", "B")
		assert.ErrorIs(t, err, ErrCancelled)
		assert.Equal(t, PhaseUninitialized, h.c.Phase())
	})

	t.Run("replaces previous game", func(t *testing.T) {
		h := newHarness(t, false)
		h.start(t, "A", "B")
		h.check(t, "A", map[string]int{"A": 1, "B": 9})

		h.start(t, "C", "D", "E")
		v := h.c.View()
		assert.Empty(t, v.Rounds)
		assert.False(t, v.CanUndo)
		assert.Len(t, v.Players, 3)
	})
}

func TestSubmitCheck(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B", "C")

	report := h.check(t, "A", map[string]int{"A": 10, "B": 15, "C": 20})
	assert.Equal(t, game.CheckerWon, report.Resolution.Outcome)
	assert.Equal(t, SeveritySuccess, report.Severity)
	assert.Equal(t, "A wins the CHECK!", report.Narrative[0])

	v := h.c.View()
	assert.Equal(t, map[string]int{"A": 0, "B": 15, "C": 20}, scores(v))
	assert.Len(t, v.Rounds, 1)
	assert.True(t, v.CanUndo)
	assert.Equal(t, PhaseActive, v.Phase)

	report = h.check(t, "b", map[string]int{"a": 3, "b": 7, "c": 40})
	assert.Equal(t, game.CheckerLost, report.Resolution.Outcome)
	assert.Equal(t, SeverityError, report.Severity)
	assert.Equal(t, "B", report.Resolution.Checker)
	assert.Equal(t, map[string]int{"A": 0, "B": 65, "C": 20}, scores(h.c.View()))
}

func TestSubmitCheckUsesSelectedChecker(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B")

	_, err := h.c.SubmitCheck("", map[string]int{"A": 1, "B": 2})
	assert.ErrorIs(t, err, game.ErrInvalidChecker)

	assert.ErrorIs(t, h.c.SelectChecker("Z"), game.ErrInvalidChecker)
	require.NoError(t, h.c.SelectChecker("b"))
	assert.Equal(t, "B", h.c.View().PendingChecker)

	report := h.check(t, "", map[string]int{"A": 10, "B": 2})
	assert.Equal(t, "B", report.Resolution.Checker)
	assert.Empty(t, h.c.View().PendingChecker)
}

func TestSubmitCheckErrorsLeaveStateUntouched(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 15})
	before := h.c.View()

	tests := []struct {
		name    string
		checker string
		sums    map[string]int
		wantErr error
	}{
		{"sum too high", "A", map[string]int{"A": 1, "B": 66}, game.ErrInvalidScore},
		{"negative sum", "A", map[string]int{"A": -1, "B": 6}, game.ErrInvalidScore},
		{"missing sum", "A", map[string]int{"A": 1}, game.ErrMissingScore},
		{"unknown checker", "Z", map[string]int{"A": 1, "B": 6}, game.ErrInvalidChecker},
		{"stranger", "A", map[string]int{"A": 1, "B": 6, "Z": 3}, game.ErrUnknownPlayer},
		{"same player twice", "A", map[string]int{"A": 1, "b": 10, "B": 60}, game.ErrDuplicateScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.c.SubmitCheck(tt.checker, tt.sums)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, SeverityError, h.rec.lastNote().sev)

			after := h.c.View()
			assert.Equal(t, before.Players, after.Players)
			assert.Equal(t, before.Rounds, after.Rounds)
			assert.True(t, after.CanUndo)
		})
	}
}

func TestSubmitCheckWithoutSession(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.c.SubmitCheck("A", map[string]int{"A": 1, "B": 2})
	assert.ErrorIs(t, err, game.ErrSessionNotActive)
}

func TestGameConcludes(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B")

	h.check(t, "A", map[string]int{"A": 20, "B": 8})
	report := h.check(t, "A", map[string]int{"A": 12, "B": 8})

	assert.Equal(t, "B", report.Resolution.Winner)
	assert.Equal(t, "B WINS THE GAME!", report.Narrative[len(report.Narrative)-1])
	assert.Contains(t, h.rec.messages(), "B wins!")

	v := h.c.View()
	assert.Equal(t, PhaseConcluded, v.Phase)
	assert.Equal(t, "B", v.Winner)
	assert.Equal(t, 100, scores(v)["A"])

	_, err := h.c.SubmitCheck("B", map[string]int{"B": 1})
	assert.ErrorIs(t, err, ErrSessionConcluded)

	// the concluding round can still be undone
	require.NoError(t, h.c.UndoLastRound())
	v = h.c.View()
	assert.Equal(t, PhaseActive, v.Phase)
	assert.Empty(t, v.Winner)
	assert.Equal(t, 50, scores(v)["A"])
}

func TestUndoLastRound(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B")

	assert.ErrorIs(t, h.c.UndoLastRound(), game.ErrNothingToUndo)

	require.NoError(t, h.c.SelectChecker("B"))
	h.check(t, "", map[string]int{"A": 15, "B": 2})
	assert.Equal(t, 15, scores(h.c.View())["A"])

	require.NoError(t, h.c.UndoLastRound())
	v := h.c.View()
	assert.Empty(t, v.Rounds)
	assert.Equal(t, 0, scores(v)["A"])
	assert.Equal(t, "B", v.PendingChecker)
	assert.False(t, v.CanUndo)
	assert.Contains(t, h.rec.prompts, "Undo the last round?")

	assert.ErrorIs(t, h.c.UndoLastRound(), game.ErrNothingToUndo)
}

func TestUndoOnlyReversesOneRound(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B", "C")
	h.check(t, "A", map[string]int{"A": 1, "B": 10, "C": 20})
	after1 := h.c.View()
	h.check(t, "C", map[string]int{"A": 5, "B": 10, "C": 20})

	require.NoError(t, h.c.UndoLastRound())
	v := h.c.View()
	assert.Equal(t, after1.Players, v.Players)
	assert.Equal(t, after1.Rounds, v.Rounds)
	assert.ErrorIs(t, h.c.UndoLastRound(), game.ErrNothingToUndo)
}

func TestUndoDeclined(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 15})

	h.rec.setAnswer(false)
	assert.ErrorIs(t, h.c.UndoLastRound(), ErrCancelled)
	assert.Equal(t, 15, scores(h.c.View())["B"])
	assert.True(t, h.c.View().CanUndo)
}

func TestEndSession(t *testing.T) {
	h := newHarness(t, false)
	assert.ErrorIs(t, h.c.EndSession(), game.ErrSessionNotActive)

	h.start(t, "A", "B")
	h.rec.setAnswer(false)
	assert.ErrorIs(t, h.c.EndSession(), ErrCancelled)
	assert.Equal(t, PhaseActive, h.c.Phase())

	h.rec.setAnswer(true)
	require.NoError(t, h.c.EndSession())
	assert.Equal(t, PhaseUninitialized, h.c.Phase())
	assert.Empty(t, h.c.View().Players)
	assert.Equal(t, note{"Game ended", SeverityInfo}, h.rec.lastNote())
}

func TestLedgerMatchesScores(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B", "C")

	rounds := []struct {
		checker string
		sums    map[string]int
	}{
		{"A", map[string]int{"A": 2, "B": 30, "C": 9}},
		{"B", map[string]int{"A": 2, "B": 30, "C": 9}},
		{"C", map[string]int{"A": 12, "B": 30, "C": 9}},
		{"A", map[string]int{"A": 0, "C": 9}},
	}
	for _, r := range rounds {
		h.check(t, r.checker, r.sums)
		h.clock.Advance(time.Minute)

		v := h.c.View()
		totals := game.NewLedger(v.Rounds...).TotalsByPlayer()
		for _, p := range v.Players {
			assert.Equal(t, p.Score, totals[p.Name], p.Name)
		}
	}

	v := h.c.View()
	for i := 1; i < len(v.Rounds); i++ {
		assert.False(t, v.Rounds[i].Timestamp.Before(v.Rounds[i-1].Timestamp))
	}
}

func TestSave(t *testing.T) {
	h := newHarness(t, false)
	ctx := testContext(t)

	h.start(t, "A", "B")
	assert.ErrorIs(t, h.c.Save(ctx), ErrNotAuthenticated)

	h.signIn("user-1")
	assert.ErrorIs(t, h.c.Save(ctx), game.ErrSessionNotActive, "signing in drops the anonymous game")

	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 15})
	require.NoError(t, h.c.Save(ctx))

	id := h.c.View().RecordID
	require.NotEmpty(t, id)
	assert.Contains(t, h.rec.messages(), "Game saved successfully!")
	assert.Equal(t, []StatusKind{StatusSaving, StatusConnected}, h.rec.statusKinds())

	h.check(t, "B", map[string]int{"A": 1, "B": 15})
	require.NoError(t, h.c.Save(ctx))
	assert.Equal(t, id, h.c.View().RecordID)

	games := h.games(t)
	require.Len(t, games, 1)
	assert.Equal(t, id, games[0].ID)
	assert.Equal(t, 2, games[0].TotalRounds)
	assert.Equal(t, []string{"A", "B"}, games[0].PlayerNames)
	assert.False(t, games[0].IsCompleted)
}

func TestSaveFailureRevertsStatus(t *testing.T) {
	h := newHarness(t, false)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 15})
	before := h.c.View()

	h.store.setFailing(true)
	err := h.c.Save(ctx)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, note{"Failed to save game. Please try again.", SeverityError}, h.rec.lastNote())
	assert.Equal(t, []StatusKind{StatusSaving, StatusError}, h.rec.statusKinds())
	assert.Equal(t, Status{Message: "Error saving game", Kind: StatusError}, h.c.View().Status)

	after := h.c.View()
	assert.Equal(t, before.Players, after.Players)
	assert.Equal(t, before.Rounds, after.Rounds)
	assert.Empty(t, after.RecordID)

	h.clock.Advance(3 * time.Second).MustWait(ctx)
	assert.Equal(t, []StatusKind{StatusSaving, StatusError, StatusConnected}, h.rec.statusKinds())
	assert.Equal(t, "Database Connected", h.c.View().Status.Message)

	// play continues
	h.check(t, "A", map[string]int{"A": 1, "B": 15})
}

func TestSaveWaitingBehindWriteStoresLatestState(t *testing.T) {
	h := newHarness(t, false)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	entered, release := h.store.holdNextWrite()
	first := make(chan error, 1)
	go func() { first <- h.c.Save(ctx) }()
	<-entered

	h.check(t, "A", map[string]int{"A": 1, "B": 10})
	second := make(chan error, 1)
	go func() { second <- h.c.Save(ctx) }()
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	games := h.games(t)
	require.Len(t, games, 1)
	assert.Equal(t, 3, games[0].TotalRounds)
}

func TestAutoSaveDebounces(t *testing.T) {
	h := newHarness(t, true)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B")

	h.check(t, "A", map[string]int{"A": 1, "B": 10})
	h.clock.Advance(500 * time.Millisecond).MustWait(ctx)
	h.check(t, "A", map[string]int{"A": 1, "B": 20})
	h.clock.Advance(500 * time.Millisecond).MustWait(ctx)
	h.check(t, "A", map[string]int{"A": 1, "B": 30})

	// first two deadlines were superseded
	h.clock.Advance(999 * time.Millisecond).MustWait(ctx)
	assert.Empty(t, h.games(t))

	h.clock.Advance(time.Millisecond).MustWait(ctx)
	games := h.games(t)
	require.Len(t, games, 1)
	assert.Equal(t, 3, games[0].TotalRounds)
	assert.Equal(t, 1, h.store.writes)
	assert.Equal(t, games[0].ID, h.c.View().RecordID)
	assert.NotContains(t, h.rec.messages(), "Game saved successfully!")

	h.check(t, "A", map[string]int{"A": 1, "B": 5})
	h.clock.Advance(time.Second).MustWait(ctx)
	games = h.games(t)
	require.Len(t, games, 1)
	assert.Equal(t, 4, games[0].TotalRounds)
}

func TestAutoSaveSkipsWithoutUser(t *testing.T) {
	h := newHarness(t, true)
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	_, pending := h.clock.Peek()
	assert.False(t, pending)
	assert.Zero(t, h.store.writes)
}

func TestEndSessionCancelsAutoSave(t *testing.T) {
	h := newHarness(t, true)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	require.NoError(t, h.c.EndSession())
	h.clock.Advance(2 * time.Second).MustWait(ctx)
	assert.Empty(t, h.games(t))
	assert.Zero(t, h.store.writes)
}

func TestStartSessionCancelsAutoSave(t *testing.T) {
	h := newHarness(t, true)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	h.start(t, "C", "D")
	h.clock.Advance(2 * time.Second).MustWait(ctx)
	assert.Empty(t, h.games(t))
}

func TestCloseFlushesPendingAutoSave(t *testing.T) {
	h := newHarness(t, true)
	h.signIn("user-1")
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	require.True(t, h.c.autosave.Pending())
	require.NoError(t, h.c.Close())
	assert.False(t, h.c.autosave.Pending())
	games, err := h.store.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, 1, games[0].TotalRounds)
}

func TestLoadGame(t *testing.T) {
	h := newHarness(t, false)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B", "C")
	h.check(t, "A", map[string]int{"A": 1, "B": 10, "C": 30})
	h.check(t, "C", map[string]int{"A": 1, "B": 10, "C": 30})
	require.NoError(t, h.c.Save(ctx))
	saved := h.c.View()
	require.NoError(t, h.c.EndSession())

	require.NoError(t, h.c.LoadGame(ctx, saved.RecordID))
	v := h.c.View()
	assert.Equal(t, saved.Players, v.Players)
	assert.Equal(t, saved.RecordID, v.RecordID)
	assert.Len(t, v.Rounds, 2)
	assert.False(t, v.CanUndo, "undo history does not survive a load")
	assert.Equal(t, saved.StartTime.UnixMilli(), v.StartTime.UnixMilli())
	assert.Equal(t, note{"Game loaded!", SeveritySuccess}, h.rec.lastNote())

	// saving again updates the same record
	h.check(t, "B", map[string]int{"A": 1, "B": 0, "C": 30})
	require.NoError(t, h.c.Save(ctx))
	games := h.games(t)
	require.Len(t, games, 1)
	assert.Equal(t, 3, games[0].TotalRounds)
}

func TestLoadGameRefusals(t *testing.T) {
	ctx := testContext(t)

	t.Run("completed", func(t *testing.T) {
		h := newHarness(t, false)
		h.signIn("user-1")
		h.start(t, "A", "B")
		h.check(t, "A", map[string]int{"A": 1, "B": 65})
		h.check(t, "A", map[string]int{"A": 1, "B": 65})
		require.NoError(t, h.c.Save(ctx))
		id := h.c.View().RecordID

		games := h.games(t)
		require.Len(t, games, 1)
		assert.True(t, games[0].IsCompleted)
		assert.Equal(t, "A", games[0].WinnerName)

		assert.ErrorIs(t, h.c.LoadGame(ctx, id), ErrGameCompleted)
	})

	t.Run("other user", func(t *testing.T) {
		h := newHarness(t, false)
		id, err := h.store.Create(ctx, "user-2", []byte(`{}`), store.Metadata{})
		require.NoError(t, err)

		h.signIn("user-1")
		assert.ErrorIs(t, h.c.LoadGame(ctx, id), store.ErrNotFound)
		assert.ErrorIs(t, h.c.DeleteGame(ctx, id), store.ErrNotFound)
	})

	t.Run("corrupt", func(t *testing.T) {
		h := newHarness(t, false)
		state := `{"players":[{"name":"A"},{"name":"B"}],"gameData":{"A":{"score":40},"B":{"score":0}},"roundHistory":[],"gameStartTime":0}`
		id, err := h.store.Create(ctx, "user-1", []byte(state), store.Metadata{})
		require.NoError(t, err)

		h.signIn("user-1")
		assert.ErrorIs(t, h.c.LoadGame(ctx, id), ErrCorruptState)
		assert.Equal(t, PhaseUninitialized, h.c.Phase())
	})

	t.Run("signed out", func(t *testing.T) {
		h := newHarness(t, false)
		assert.ErrorIs(t, h.c.LoadGame(ctx, "x"), ErrNotAuthenticated)
		_, err := h.c.ListGames(ctx)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestDeleteGame(t *testing.T) {
	h := newHarness(t, false)
	ctx := testContext(t)
	h.signIn("user-1")
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})
	require.NoError(t, h.c.Save(ctx))
	id := h.c.View().RecordID

	h.rec.setAnswer(false)
	assert.ErrorIs(t, h.c.DeleteGame(ctx, id), ErrCancelled)
	assert.Len(t, h.games(t), 1)

	h.rec.setAnswer(true)
	require.NoError(t, h.c.DeleteGame(ctx, id))
	assert.Empty(t, h.games(t))
	assert.Empty(t, h.c.View().RecordID)
	assert.Equal(t, note{"Game deleted", SeveritySuccess}, h.rec.lastNote())

	// the live game is saved as a new record next time
	require.NoError(t, h.c.Save(ctx))
	assert.NotEqual(t, id, h.c.View().RecordID)
}

func TestSignOutClearsEverything(t *testing.T) {
	h := newHarness(t, true)
	ctx := testContext(t)
	h.signIn("user-1")
	require.NoError(t, h.c.AddPlayer("Zed"))
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	h.c.SetIdentity(nil)
	assert.Nil(t, h.c.Identity())
	v := h.c.View()
	assert.Equal(t, PhaseUninitialized, v.Phase)
	assert.Empty(t, v.Setup)

	h.clock.Advance(time.Second).MustWait(ctx)
	assert.Zero(t, h.store.writes)
}

func TestSameUserKeepsSession(t *testing.T) {
	h := newHarness(t, false)
	h.signIn("user-1")
	h.start(t, "A", "B")

	h.c.SetIdentity(&auth.Identity{UserID: "user-1", Email: "new@example.com"})
	assert.Equal(t, PhaseActive, h.c.Phase())
	assert.Equal(t, "new@example.com", h.c.Identity().Email)
}

func TestListenersSeeEveryChange(t *testing.T) {
	h := newHarness(t, false)
	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	require.Len(t, h.rec.views, 2)
	assert.Equal(t, PhaseActive, h.rec.views[0].Phase)
	assert.Len(t, h.rec.views[1].Rounds, 1)
	assert.Equal(t, []string{"Player", "R1", "Total"}, h.rec.views[1].Table.Headers)
}

// A listener that calls back into the controller must not deadlock.
type reentrantListener struct {
	c     *Controller
	calls int
}

func (l *reentrantListener) SessionChanged(View) {
	l.calls++
	_ = l.c.View()
}

func TestListenerMayCallBack(t *testing.T) {
	h := newHarness(t, false)
	l := &reentrantListener{c: h.c}
	h.c.listeners = append(h.c.listeners, l)

	h.start(t, "A", "B")
	h.check(t, "A", map[string]int{"A": 1, "B": 10})
	assert.Equal(t, 2, l.calls)
}

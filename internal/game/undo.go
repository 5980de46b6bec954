package game

// Snapshot is the state captured right before a round is resolved
type Snapshot struct {
	Players        []Player
	Rounds         []RoundRecord
	PendingChecker string
}

// UndoBuffer keeps a single snapshot, so only the last round can be undone.
// A second undo without a new round in between fails with ErrNothingToUndo.
type UndoBuffer struct {
	snap *Snapshot
}

// Capture stores deep copies of the roster and ledger, replacing any
// previous snapshot.
func (u *UndoBuffer) Capture(r *Roster, l *Ledger, pendingChecker string) {
	u.snap = &Snapshot{
		Players:        r.Players(),
		Rounds:         l.Records(),
		PendingChecker: pendingChecker,
	}
}

// Available reports whether Restore would succeed against current.
func (u *UndoBuffer) Available(current *Ledger) bool {
	return u.snap != nil && current.Len() > 0
}

// Restore hands back the snapshot and empties the buffer.
func (u *UndoBuffer) Restore(current *Ledger) (Snapshot, error) {
	if !u.Available(current) {
		return Snapshot{}, ErrNothingToUndo
	}
	snap := *u.snap
	u.snap = nil
	return snap, nil
}

// Clear drops the snapshot
func (u *UndoBuffer) Clear() {
	u.snap = nil
}

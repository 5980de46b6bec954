// Package game implements the scoring rules for Century, a CHECK card game
// where players collect penalty points and are eliminated at 100.
//
// The main entry point is Resolve, a pure function that turns the current
// Roster, the player who called CHECK and every active player's hand sum into
// a Resolution: per-player penalties, updated scores, elimination flags and an
// optional overall winner.
//
// # Basic Usage
//
// Build a roster, resolve a round and record it:
//
//	r, _ := game.NewRoster("Alice", "Bob", "Charlie")
//	res, err := game.Resolve(r, "Alice", map[string]int{"Alice": 10, "Bob": 15, "Charlie": 20})
//	if err != nil {
//	    // ErrInvalidChecker, ErrInvalidScore, ... nothing was changed
//	}
//	r.Apply(res)
//	ledger.Append(res.Record(time.Now()))
//
// # Rules
//
//   - The checker wins only when their sum is strictly lower than every other
//     active player's sum. Ties count as a loss for the checker.
//   - When the checker wins, every other active player adds their own sum.
//   - When the checker loses, the checker alone adds CheckerLossPenalty.
//   - A player reaching EliminationScore is eliminated for the rest of the game.
//   - The game is concluded when exactly one active player remains.
//
// # Architecture
//
// Resolution is separated from state so that it can be tested in isolation:
//   - Roster: ordered players with score and elimination status
//   - Ledger: resolved rounds, used for the score table and as a cross-check
//     of the roster totals
//   - UndoBuffer: a single snapshot taken before each resolution
package game

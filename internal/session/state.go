package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/century/internal/game"
	"github.com/lox/century/internal/store"
)

// State is the saved-game blob. Players keep their seating order; scores
// live in a name-keyed map and timestamps are Unix milliseconds, which is
// the layout older saves already use.
type State struct {
	Players   []statePlayer          `json:"players"`
	GameData  map[string]playerState `json:"gameData"`
	Rounds    []stateRound           `json:"roundHistory"`
	StartTime int64                  `json:"gameStartTime"`
}

type statePlayer struct {
	Name string `json:"name"`
}

type playerState struct {
	Score      int  `json:"score"`
	Eliminated bool `json:"eliminated"`
}

type stateRound struct {
	Checker   string         `json:"checker"`
	Penalties map[string]int `json:"penalties"`
	Timestamp int64          `json:"timestamp"`
}

// NewState captures a roster and ledger for saving.
func NewState(r *game.Roster, l *game.Ledger, start time.Time) State {
	s := State{
		GameData:  make(map[string]playerState, r.Len()),
		StartTime: start.UnixMilli(),
	}
	for _, p := range r.Players() {
		s.Players = append(s.Players, statePlayer{Name: p.Name})
		s.GameData[p.Name] = playerState{Score: p.Score, Eliminated: p.Eliminated}
	}
	for _, rr := range l.Records() {
		s.Rounds = append(s.Rounds, stateRound{
			Checker:   rr.Checker,
			Penalties: rr.Penalties,
			Timestamp: rr.Timestamp.UnixMilli(),
		})
	}
	return s
}

// Metadata derives the listing fields for a saved game.
func (s State) Metadata() store.Metadata {
	meta := store.Metadata{TotalRounds: len(s.Rounds)}
	var active []string
	for _, p := range s.Players {
		meta.PlayerNames = append(meta.PlayerNames, p.Name)
		if !s.GameData[p.Name].Eliminated {
			active = append(active, p.Name)
		}
	}
	if len(active) == 1 {
		meta.IsCompleted = true
		meta.WinnerName = active[0]
	}
	return meta
}

// Restore rebuilds the roster and ledger, checking that the round history
// adds up to the stored scores.
func (s State) Restore() (*game.Roster, *game.Ledger, time.Time, error) {
	players := make([]game.Player, 0, len(s.Players))
	for _, sp := range s.Players {
		ps, ok := s.GameData[sp.Name]
		if !ok {
			return nil, nil, time.Time{}, fmt.Errorf("%w: no score for %s", ErrCorruptState, sp.Name)
		}
		players = append(players, game.Player{Name: sp.Name, Score: ps.Score, Eliminated: ps.Eliminated})
	}
	roster, err := game.RosterFromPlayers(players)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if roster.Len() < game.MinPlayers {
		return nil, nil, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptState, game.ErrInsufficientPlayers)
	}

	records := make([]game.RoundRecord, 0, len(s.Rounds))
	for i, sr := range s.Rounds {
		if _, ok := roster.Get(sr.Checker); !ok {
			return nil, nil, time.Time{}, fmt.Errorf("%w: round %d checker %q is not a player", ErrCorruptState, i+1, sr.Checker)
		}
		records = append(records, game.RoundRecord{
			Checker:   sr.Checker,
			Penalties: sr.Penalties,
			Timestamp: time.UnixMilli(sr.Timestamp),
		})
	}
	ledger := game.NewLedger(records...)

	totals := ledger.TotalsByPlayer()
	for name := range totals {
		if _, ok := roster.Get(name); !ok {
			return nil, nil, time.Time{}, fmt.Errorf("%w: penalties recorded for unknown player %q", ErrCorruptState, name)
		}
	}
	for _, p := range roster.Players() {
		if totals[p.Name] != p.Score {
			return nil, nil, time.Time{}, fmt.Errorf("%w: %s has score %d but rounds total %d", ErrCorruptState, p.Name, p.Score, totals[p.Name])
		}
	}

	return roster, ledger, time.UnixMilli(s.StartTime), nil
}

// DecodeState validates and parses a saved-game blob
func DecodeState(data []byte) (State, error) {
	if err := validateState(data); err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return s, nil
}

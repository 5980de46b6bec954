package game

import (
	"fmt"
	"strings"
)

// MinPlayers is the smallest roster a game can start with.
const MinPlayers = 2

// Player represents a participant and their running penalty total
type Player struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
}

// IsActive returns true if the player is still in the game
func (p Player) IsActive() bool {
	return !p.Eliminated
}

// Roster is the ordered set of players in a game. Names are unique
// ignoring case; order is insertion order and only matters for display.
type Roster struct {
	players []Player
}

// NewRoster creates a roster with every player at zero points.
func NewRoster(names ...string) (*Roster, error) {
	r := &Roster{players: make([]Player, 0, len(names))}
	for _, name := range names {
		if _, err := r.Add(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RosterFromPlayers rebuilds a roster from persisted players, keeping their
// scores and elimination flags.
func RosterFromPlayers(players []Player) (*Roster, error) {
	r := &Roster{players: make([]Player, 0, len(players))}
	for _, p := range players {
		name, err := r.Add(p.Name)
		if err != nil {
			return nil, err
		}
		if p.Score < 0 {
			return nil, fmt.Errorf("player %s: negative score %d", name, p.Score)
		}
		last := &r.players[len(r.players)-1]
		last.Score = p.Score
		last.Eliminated = p.Eliminated || p.Score >= EliminationScore
	}
	return r, nil
}

// Add appends a player and returns the trimmed name that was stored.
func (r *Roster) Add(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyPlayerName
	}
	if existing, ok := r.Lookup(name); ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicatePlayerName, existing)
	}
	r.players = append(r.players, Player{Name: name})
	return name, nil
}

// Remove deletes a player by name (case-insensitive) and returns the stored name.
func (r *Roster) Remove(name string) (string, error) {
	i := r.index(name)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlayer, strings.TrimSpace(name))
	}
	removed := r.players[i].Name
	r.players = append(r.players[:i], r.players[i+1:]...)
	return removed, nil
}

// Lookup resolves a name ignoring case and surrounding whitespace.
func (r *Roster) Lookup(name string) (string, bool) {
	i := r.index(name)
	if i < 0 {
		return "", false
	}
	return r.players[i].Name, true
}

func (r *Roster) index(name string) int {
	name = strings.TrimSpace(name)
	for i, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Get returns the player with exactly this name.
func (r *Roster) Get(name string) (Player, bool) {
	for _, p := range r.players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// Len returns the number of players
func (r *Roster) Len() int {
	return len(r.players)
}

// Players returns a copy of all players in insertion order
func (r *Roster) Players() []Player {
	out := make([]Player, len(r.players))
	copy(out, r.players)
	return out
}

// Names returns all player names in insertion order
func (r *Roster) Names() []string {
	names := make([]string, len(r.players))
	for i, p := range r.players {
		names[i] = p.Name
	}
	return names
}

// Active returns players that are not eliminated
func (r *Roster) Active() []Player {
	var out []Player
	for _, p := range r.players {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// Eliminated returns players that have been knocked out
func (r *Roster) Eliminated() []Player {
	var out []Player
	for _, p := range r.players {
		if p.Eliminated {
			out = append(out, p)
		}
	}
	return out
}

// IsConcluded reports whether exactly one active player remains.
func (r *Roster) IsConcluded() bool {
	return len(r.Active()) == 1
}

// Winner returns the sole active player once the game is concluded.
func (r *Roster) Winner() (Player, bool) {
	active := r.Active()
	if len(active) != 1 {
		return Player{}, false
	}
	return active[0], true
}

// Apply writes a resolution's scores and elimination flags into the roster.
// Elimination is never reverted here; only an undo restores earlier flags.
func (r *Roster) Apply(res Resolution) {
	for i := range r.players {
		p := &r.players[i]
		if score, ok := res.Scores[p.Name]; ok {
			p.Score = score
		}
		if res.Eliminated[p.Name] {
			p.Eliminated = true
		}
	}
}

// Clone returns an independent copy
func (r *Roster) Clone() *Roster {
	return &Roster{players: r.Players()}
}

package spectate

import (
	"time"

	"github.com/lox/century/internal/session"
)

// Snapshot is the scoreboard pushed to every spectator
type Snapshot struct {
	Type      string         `json:"type"`
	Phase     string         `json:"phase"`
	Players   []PlayerLine   `json:"players"`
	Winner    string         `json:"winner,omitempty"`
	Rounds    int            `json:"rounds"`
	Table     [][]string     `json:"table"`
	Headers   []string       `json:"headers"`
	Checker   string         `json:"checker,omitempty"`
	Status    session.Status `json:"status"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Sent      time.Time      `json:"sent"`
}

// PlayerLine is one player's standing
type PlayerLine struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
}

// NewSnapshot converts a session view into the wire format.
func NewSnapshot(v session.View, now time.Time) Snapshot {
	s := Snapshot{
		Type:    "scoreboard",
		Phase:   v.Phase.String(),
		Winner:  v.Winner,
		Rounds:  len(v.Rounds),
		Table:   v.Table.Strings(),
		Headers: v.Table.Headers,
		Checker: v.PendingChecker,
		Status:  v.Status,
		Sent:    now,
	}
	for _, p := range v.Players {
		s.Players = append(s.Players, PlayerLine{Name: p.Name, Score: p.Score, Eliminated: p.Eliminated})
	}
	if !v.StartTime.IsZero() {
		start := v.StartTime
		s.StartedAt = &start
	}
	return s
}

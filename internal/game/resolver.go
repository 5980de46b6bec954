package game

import (
	"fmt"
	"time"
)

const (
	MinHandSum         = 0
	MaxHandSum         = 65
	CheckerLossPenalty = 50
	EliminationScore   = 100
)

// Outcome is the result of a CHECK for the player who called it
type Outcome int

const (
	CheckerWon Outcome = iota
	CheckerLost
)

func (o Outcome) String() string {
	switch o {
	case CheckerWon:
		return "CHECKER_WON"
	case CheckerLost:
		return "CHECKER_LOST"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Resolution is everything a single CHECK changes. It is computed by Resolve
// and applied separately, so a failed validation never touches the roster.
type Resolution struct {
	Checker string
	Outcome Outcome
	Sums    map[string]int

	// Penalties holds an entry for every roster player, 0 when untouched.
	Penalties map[string]int
	// Scores and Eliminated hold the post-round values for every roster player.
	Scores     map[string]int
	Eliminated map[string]bool

	NewlyEliminated []string
	Winner          string

	order []string
}

// Concluded reports whether this round left a single active player.
func (res Resolution) Concluded() bool {
	return res.Winner != ""
}

// TotalPenalty is the sum of the penalties applied this round.
func (res Resolution) TotalPenalty() int {
	total := 0
	for _, p := range res.Penalties {
		total += p
	}
	return total
}

// Record converts the resolution into a ledger entry.
func (res Resolution) Record(at time.Time) RoundRecord {
	penalties := make(map[string]int, len(res.Penalties))
	for name, p := range res.Penalties {
		penalties[name] = p
	}
	return RoundRecord{
		Checker:   res.Checker,
		Penalties: penalties,
		Timestamp: at,
	}
}

// ValidateSum checks a submitted hand sum against the card-value bounds.
func ValidateSum(name string, sum int) error {
	if sum < MinHandSum || sum > MaxHandSum {
		return fmt.Errorf("%w: %s submitted %d (must be %d-%d)", ErrInvalidScore, name, sum, MinHandSum, MaxHandSum)
	}
	return nil
}

// Resolve scores one CHECK. The roster is not modified.
//
// sums must contain exactly the active players. Validation happens before
// any computation, so an error means nothing was resolved.
func Resolve(r *Roster, checker string, sums map[string]int) (Resolution, error) {
	if checker == "" {
		return Resolution{}, fmt.Errorf("%w: no checker selected", ErrInvalidChecker)
	}
	cp, ok := r.Get(checker)
	if !ok || !cp.IsActive() {
		return Resolution{}, fmt.Errorf("%w: %s", ErrInvalidChecker, checker)
	}

	active := r.Active()
	for _, p := range active {
		sum, ok := sums[p.Name]
		if !ok {
			return Resolution{}, fmt.Errorf("%w: %s", ErrMissingScore, p.Name)
		}
		if err := ValidateSum(p.Name, sum); err != nil {
			return Resolution{}, err
		}
	}
	for name := range sums {
		if p, ok := r.Get(name); !ok || !p.IsActive() {
			return Resolution{}, fmt.Errorf("%w: %s is not an active player", ErrUnknownPlayer, name)
		}
	}

	res := Resolution{
		Checker:    checker,
		Sums:       make(map[string]int, len(active)),
		Penalties:  make(map[string]int, r.Len()),
		Scores:     make(map[string]int, r.Len()),
		Eliminated: make(map[string]bool, r.Len()),
	}
	for _, p := range r.players {
		res.Penalties[p.Name] = 0
		res.Scores[p.Name] = p.Score
		res.Eliminated[p.Name] = p.Eliminated
	}
	for _, p := range active {
		res.Sums[p.Name] = sums[p.Name]
		res.order = append(res.order, p.Name)
	}

	checkerSum := sums[checker]
	res.Outcome = CheckerWon
	for _, p := range active {
		if p.Name != checker && sums[p.Name] <= checkerSum {
			res.Outcome = CheckerLost
			break
		}
	}

	if res.Outcome == CheckerWon {
		for _, p := range active {
			if p.Name == checker {
				continue
			}
			res.Penalties[p.Name] = sums[p.Name]
		}
	} else {
		res.Penalties[checker] = CheckerLossPenalty
	}

	remaining := 0
	for _, p := range r.players {
		res.Scores[p.Name] += res.Penalties[p.Name]
		if !p.Eliminated && res.Scores[p.Name] >= EliminationScore {
			res.Eliminated[p.Name] = true
			res.NewlyEliminated = append(res.NewlyEliminated, p.Name)
		}
		if !res.Eliminated[p.Name] {
			remaining++
		}
	}
	if remaining == 1 {
		for _, name := range res.order {
			if !res.Eliminated[name] {
				res.Winner = name
			}
		}
	}

	return res, nil
}

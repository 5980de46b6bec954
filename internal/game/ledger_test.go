package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAppendCopies(t *testing.T) {
	l := NewLedger()
	penalties := map[string]int{"A": 0, "B": 15}
	l.Append(RoundRecord{Checker: "A", Penalties: penalties, Timestamp: time.Unix(1, 0)})

	penalties["B"] = 99
	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, 15, last.Penalties["B"])

	records := l.Records()
	records[0].Penalties["B"] = 42
	assert.Equal(t, 15, l.TotalsByPlayer()["B"])
}

func TestLedgerReplaceAll(t *testing.T) {
	l := NewLedger(
		RoundRecord{Checker: "A", Penalties: map[string]int{"A": 0, "B": 10}},
		RoundRecord{Checker: "B", Penalties: map[string]int{"A": 0, "B": 50}},
	)
	require.Equal(t, 2, l.Len())

	l.ReplaceAll(nil)
	assert.Equal(t, 0, l.Len())
	_, ok := l.Last()
	assert.False(t, ok)
	assert.Empty(t, l.TotalsByPlayer())
}

// Play a sequence of rounds and check that the ledger totals always agree
// with the roster and that scores never go down.
func TestLedgerTotalsMatchRoster(t *testing.T) {
	r, err := NewRoster("A", "B", "C")
	require.NoError(t, err)
	l := NewLedger()

	rounds := []struct {
		checker string
		sums    map[string]int
	}{
		{"A", map[string]int{"A": 4, "B": 20, "C": 31}},
		{"B", map[string]int{"A": 4, "B": 20, "C": 31}},
		{"C", map[string]int{"A": 40, "B": 20, "C": 2}},
		{"A", map[string]int{"A": 0, "B": 65, "C": 12}},
		{"C", map[string]int{"A": 10, "C": 9}},
	}

	prev := map[string]int{}
	for i, round := range rounds {
		res, err := Resolve(r, round.checker, round.sums)
		require.NoError(t, err, "round %d", i+1)
		r.Apply(res)
		l.Append(res.Record(time.Unix(int64(i), 0)))

		totals := l.TotalsByPlayer()
		for _, p := range r.Players() {
			assert.Equal(t, p.Score, totals[p.Name], "round %d player %s", i+1, p.Name)
			assert.GreaterOrEqual(t, p.Score, prev[p.Name])
			prev[p.Name] = p.Score
		}
	}

	assert.Equal(t, 5, l.Len())
	b, _ := r.Get("B")
	assert.True(t, b.Eliminated)
}

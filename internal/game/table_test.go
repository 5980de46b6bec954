package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScoreTable(t *testing.T) {
	r, err := NewRoster("A", "B", "C")
	require.NoError(t, err)
	l := NewLedger()

	play := func(checker string, sums map[string]int) {
		res, err := Resolve(r, checker, sums)
		require.NoError(t, err)
		r.Apply(res)
		l.Append(res.Record(time.Now()))
	}
	play("A", map[string]int{"A": 2, "B": 30, "C": 5})
	play("C", map[string]int{"A": 2, "B": 30, "C": 5})

	table := BuildScoreTable(r, l)
	assert.Equal(t, []string{"Player", "R1", "R2", "Total"}, table.Headers)
	assert.Equal(t, [][]string{
		{"A", "-", "-", "0"},
		{"B", "+30", "-", "30"},
		{"C", "+5", "+50", "55"},
	}, table.Strings())
}

func TestBuildScoreTableKeepsOrderOnTies(t *testing.T) {
	r, err := NewRoster("Zed", "Amy")
	require.NoError(t, err)

	table := BuildScoreTable(r, NewLedger())
	assert.Equal(t, []string{"Player", "Total"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Zed", table.Rows[0].Name)
	assert.Empty(t, table.Rows[0].Cells)
}

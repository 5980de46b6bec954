package game

import (
	"fmt"
	"sort"
)

// ScoreRow is one player's line in the per-round score table
type ScoreRow struct {
	Name       string
	Cells      []string
	Total      int
	Eliminated bool
}

// ScoreTable is the per-round penalty grid shown during play
type ScoreTable struct {
	Headers []string
	Rows    []ScoreRow
}

// BuildScoreTable lays out one column per round, with players ordered by
// ascending score. A cell shows "+N" for a penalty and "-" otherwise.
func BuildScoreTable(r *Roster, l *Ledger) ScoreTable {
	t := ScoreTable{Headers: []string{"Player"}}
	for i := range l.records {
		t.Headers = append(t.Headers, fmt.Sprintf("R%d", i+1))
	}
	t.Headers = append(t.Headers, "Total")

	players := r.Players()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score < players[j].Score
	})

	for _, p := range players {
		row := ScoreRow{Name: p.Name, Total: p.Score, Eliminated: p.Eliminated}
		for _, rr := range l.records {
			if penalty := rr.Penalties[p.Name]; penalty > 0 {
				row.Cells = append(row.Cells, fmt.Sprintf("+%d", penalty))
			} else {
				row.Cells = append(row.Cells, "-")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Strings flattens the table into rows of cells, header excluded
func (t ScoreTable) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row.Cells)+2)
		cells = append(cells, row.Name)
		cells = append(cells, row.Cells...)
		cells = append(cells, fmt.Sprintf("%d", row.Total))
		out = append(out, cells)
	}
	return out
}

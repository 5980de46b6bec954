package game

import "fmt"

// Narrative describes the round in the order players sit at the table.
func (res Resolution) Narrative() []string {
	var lines []string
	eliminated := make(map[string]bool, len(res.NewlyEliminated))
	for _, name := range res.NewlyEliminated {
		eliminated[name] = true
	}

	switch res.Outcome {
	case CheckerWon:
		lines = append(lines, fmt.Sprintf("%s wins the CHECK!", res.Checker))
		for _, name := range res.order {
			if name == res.Checker {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: +%d points (Total: %d)", name, res.Penalties[name], res.Scores[name]))
			if eliminated[name] {
				lines = append(lines, fmt.Sprintf("%s is ELIMINATED!", name))
			}
		}
	case CheckerLost:
		lines = append(lines, fmt.Sprintf("%s loses the CHECK!", res.Checker))
		lines = append(lines, fmt.Sprintf("%s: +%d penalty (Total: %d)", res.Checker, CheckerLossPenalty, res.Scores[res.Checker]))
		if eliminated[res.Checker] {
			lines = append(lines, fmt.Sprintf("%s is ELIMINATED!", res.Checker))
		}
	}

	if res.Winner != "" {
		lines = append(lines, fmt.Sprintf("%s WINS THE GAME!", res.Winner))
	}
	return lines
}

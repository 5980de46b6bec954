package game

import "strings"

// CardValueLegend is the reference line shown to players while scoring.
const CardValueLegend = "A = 1 | J = 0 | Q & K = 20 | Others = face value"

var cardValues = map[string]int{
	"A": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7,
	"8": 8, "9": 9, "10": 10, "J": 0, "Q": 20, "K": 20,
}

// CardValue returns the points a rank is worth. Used for display and hand
// totals only; submitted sums are validated against MaxHandSum alone.
func CardValue(rank string) (int, bool) {
	v, ok := cardValues[strings.ToUpper(strings.TrimSpace(rank))]
	return v, ok
}

// HandValue totals a list of ranks, e.g. "A", "10", "Q".
func HandValue(ranks ...string) (int, bool) {
	total := 0
	for _, rank := range ranks {
		v, ok := CardValue(rank)
		if !ok {
			return 0, false
		}
		total += v
	}
	return total, true
}

package game

import "time"

// RoundRecord is one resolved CHECK as kept in the ledger
type RoundRecord struct {
	Checker   string         `json:"checker"`
	Penalties map[string]int `json:"penalties"`
	Timestamp time.Time      `json:"timestamp"`
}

func (rr RoundRecord) clone() RoundRecord {
	penalties := make(map[string]int, len(rr.Penalties))
	for name, p := range rr.Penalties {
		penalties[name] = p
	}
	return RoundRecord{Checker: rr.Checker, Penalties: penalties, Timestamp: rr.Timestamp}
}

// Ledger is the ordered history of resolved rounds. Records are appended
// during play and only ever replaced wholesale (undo, load).
type Ledger struct {
	records []RoundRecord
}

// NewLedger creates a ledger holding copies of the given records
func NewLedger(records ...RoundRecord) *Ledger {
	l := &Ledger{}
	l.ReplaceAll(records)
	return l
}

// Append adds a record to the end of the ledger
func (l *Ledger) Append(record RoundRecord) {
	l.records = append(l.records, record.clone())
}

// ReplaceAll swaps the whole history for copies of records
func (l *Ledger) ReplaceAll(records []RoundRecord) {
	l.records = make([]RoundRecord, len(records))
	for i, rr := range records {
		l.records[i] = rr.clone()
	}
}

// Records returns a deep copy of the history
func (l *Ledger) Records() []RoundRecord {
	out := make([]RoundRecord, len(l.records))
	for i, rr := range l.records {
		out[i] = rr.clone()
	}
	return out
}

// Len returns the number of rounds played
func (l *Ledger) Len() int {
	return len(l.records)
}

// Last returns the most recent record
func (l *Ledger) Last() (RoundRecord, bool) {
	if len(l.records) == 0 {
		return RoundRecord{}, false
	}
	return l.records[len(l.records)-1].clone(), true
}

// TotalsByPlayer sums every player's penalties across all rounds. It must
// always agree with the roster scores.
func (l *Ledger) TotalsByPlayer() map[string]int {
	totals := make(map[string]int)
	for _, rr := range l.records {
		for name, p := range rr.Penalties {
			totals[name] += p
		}
	}
	return totals
}

// Clone returns an independent copy
func (l *Ledger) Clone() *Ledger {
	return NewLedger(l.records...)
}

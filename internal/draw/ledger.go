package draw

import (
	"prizedraw/internal/models"
)

// Ledger keeps one result per prize, in the order prizes were first drawn.
type Ledger struct {
	results []models.LotteryResult
	index   map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// Upsert replaces the winners of an existing entry or appends a new one.
func (l *Ledger) Upsert(prize models.Prize, winners []models.Participant) {
	ws := make([]models.Participant, len(winners))
	copy(ws, winners)
	for i := range ws {
		ws[i].IsAbsent = false
	}
	if i, ok := l.index[prize.ID]; ok {
		l.results[i] = models.LotteryResult{Prize: prize, Winners: ws}
		return
	}
	l.index[prize.ID] = len(l.results)
	l.results = append(l.results, models.LotteryResult{Prize: prize, Winners: ws})
}

// Get returns the result for a prize, if any.
func (l *Ledger) Get(prizeID string) (models.LotteryResult, bool) {
	i, ok := l.index[prizeID]
	if !ok {
		return models.LotteryResult{}, false
	}
	return l.results[i], true
}

// All returns every result.
func (l *Ledger) All() []models.LotteryResult {
	out := make([]models.LotteryResult, len(l.results))
	copy(out, l.results)
	return out
}

// Reset drops every entry.
func (l *Ledger) Reset() {
	l.results = nil
	l.index = make(map[string]int)
}

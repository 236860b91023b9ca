package draw

import (
	"prizedraw/internal/models"
)

// Status is the overview state of a prize.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
)

// Progress summarises one prize for the overview screen. A prize completed
// because its pool ran dry has Status completed, Exhausted set and a
// non-zero Shortfall.
type Progress struct {
	PrizeID   string `json:"prizeId"`
	Status    Status `json:"status"`
	Drawn     int    `json:"drawn"`
	Target    int    `json:"target"`
	Remaining int    `json:"remaining"`
	Eligible  int    `json:"eligible"`
	Exhausted bool   `json:"exhausted"`
	Shortfall int    `json:"shortfall"`
}

// Progress derives a prize's status from its session (nil if the prize was
// never started) and the eligible pool.
func (e *Engine) Progress(prize models.Prize, s *Session) (Progress, error) {
	pool, err := Resolve(prize, e.roster, e.settings, s)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{
		PrizeID:  prize.ID,
		Target:   prize.DrawCount,
		Eligible: len(pool),
		Status:   StatusPending,
	}
	if s == nil || len(s.committed) == 0 {
		p.Remaining = prize.DrawCount
		return p, nil
	}

	p.Drawn = len(s.committed)
	p.Remaining = s.Remaining()
	switch {
	case s.IsFull():
		p.Status = StatusCompleted
	case len(pool) == 0:
		p.Status = StatusCompleted
		p.Exhausted = true
		p.Shortfall = p.Remaining
	default:
		p.Status = StatusPartial
	}
	return p, nil
}

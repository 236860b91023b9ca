package draw

import (
	"prizedraw/internal/models"
)

// Resolve returns the eligible pool for a prize, in roster order:
//  1. the bound list, or every list when the prize is unbound;
//  2. minus participants already selected, unless repeats are allowed;
//  3. minus the session's committed winners;
//  4. minus the session's permanently excluded ids.
//
// session may be nil for a prize that has not started drawing.
func Resolve(prize models.Prize, roster *Roster, settings models.Settings, session *Session) ([]models.Participant, error) {
	base, err := roster.BasePool(prize.BoundListID)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.Participant, 0, len(base))
	for _, p := range base {
		if !settings.AllowRepeat && roster.IsSelected(p.ID) {
			continue
		}
		if session != nil && (session.HasWinner(p.ID) || session.IsExcluded(p.ID)) {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible, nil
}

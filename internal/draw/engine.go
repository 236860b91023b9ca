package draw

import (
	"fmt"

	"github.com/google/logger"

	"prizedraw/internal/models"
)

// Mode selects how many slots a draw call tries to fill.
type Mode int

const (
	// Stepwise draws exactly one winner per call.
	Stepwise Mode = iota
	// Batch draws every remaining slot in one call.
	Batch
)

func (m Mode) String() string {
	if m == Batch {
		return "batch"
	}
	return "stepwise"
}

// Outcome describes a completed draw call.
type Outcome struct {
	Winners   []models.Participant `json:"winners"`
	Requested int                  `json:"requested"`
	// Exhausted is set when the pool ran dry before the prize's target was met.
	Exhausted bool `json:"exhausted"`
}

// Engine funnels every draw and redraw through Resolve, the Sampler and
// commit. It is not safe for concurrent use; callers serialise access per event.
type Engine struct {
	roster   *Roster
	sampler  *Sampler
	settings models.Settings
}

// NewEngine returns an engine over roster. A nil sampler gets a random seed.
func NewEngine(roster *Roster, sampler *Sampler, settings models.Settings) *Engine {
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	return &Engine{roster: roster, sampler: sampler, settings: settings}
}

func (e *Engine) Roster() *Roster {
	return e.roster
}

func (e *Engine) Settings() models.Settings {
	return e.settings
}

func (e *Engine) SetSettings(settings models.Settings) {
	e.settings = settings
}

// Eligible resolves the pool for the session's prize.
func (e *Engine) Eligible(s *Session) ([]models.Participant, error) {
	return Resolve(s.prize, e.roster, e.settings, s)
}

// Commit appends winners to the session in order and, unless repeats are
// allowed, marks them selected on the roster.
func (e *Engine) Commit(s *Session, winners []models.Participant) error {
	if len(s.committed)+len(winners) > s.prize.DrawCount {
		return fmt.Errorf("commit %d winners: %w", len(winners), ErrPrizeComplete)
	}
	seen := make(map[string]struct{}, len(winners))
	for _, w := range winners {
		if _, dup := seen[w.ID]; dup || s.HasWinner(w.ID) {
			return fmt.Errorf("%w: %q drawn twice for %s", ErrInvalidConfiguration, w.ID, s.prize.Name)
		}
		seen[w.ID] = struct{}{}
	}

	for _, w := range winners {
		w.IsSelected = !e.settings.AllowRepeat
		w.IsAbsent = false
		s.committed = append(s.committed, w)
	}
	if !e.settings.AllowRepeat {
		e.roster.markSelected(winners)
	}
	return nil
}

// Draw fills one slot (Stepwise) or every remaining slot (Batch). A batch
// against a short pool commits what is available and reports Exhausted; a
// draw against an empty pool fails with ErrInsufficientPool and commits nothing.
func (e *Engine) Draw(s *Session, mode Mode) (Outcome, error) {
	if s.IsFull() {
		return Outcome{}, ErrPrizeComplete
	}
	pool, err := e.Eligible(s)
	if err != nil {
		return Outcome{}, err
	}
	if len(pool) == 0 {
		return Outcome{}, fmt.Errorf("%s needs %d more winners, none eligible: %w",
			s.prize.Name, s.Remaining(), ErrInsufficientPool)
	}

	count := 1
	if mode == Batch {
		count = s.Remaining()
	}
	winners := e.sampler.Sample(pool, count)
	if err := e.Commit(s, winners); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Winners: winners, Requested: count}
	if !s.IsFull() {
		rest, err := e.Eligible(s)
		if err != nil {
			return Outcome{}, err
		}
		out.Exhausted = len(rest) == 0
	}
	logger.Infof("draw %s: %s committed %d/%d (requested %d, exhausted %t)",
		mode, s.prize.Name, len(s.committed), s.prize.DrawCount, count, out.Exhausted)
	return out, nil
}

// Redraw replaces every winner currently flagged absent on the session.
func (e *Engine) Redraw(s *Session) ([]models.Participant, error) {
	return e.MarkAbsentAndRedraw(s, s.PendingAbsent())
}

// MarkAbsentAndRedraw removes the absent winners, excludes them from the
// prize for the rest of the session, and draws the same number of
// replacements. Either every absentee is replaced or nothing changes.
func (e *Engine) MarkAbsentAndRedraw(s *Session, absentIDs []string) ([]models.Participant, error) {
	if len(absentIDs) == 0 {
		return nil, nil
	}

	next := s.clone()
	removed := make([]string, 0, len(absentIDs))
	for _, id := range absentIDs {
		i := next.indexOf(id)
		if i < 0 {
			if next.IsExcluded(id) {
				continue
			}
			return nil, fmt.Errorf("%w: %q is not a winner of %s", ErrUnknownParticipant, id, s.prize.Name)
		}
		next.committed = append(next.committed[:i], next.committed[i+1:]...)
		next.excluded[id] = struct{}{}
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	// Absentees keep their selected flag while resolving so they cannot come
	// back through another path; they are already excluded regardless.
	pool, err := e.Eligible(next)
	if err != nil {
		return nil, err
	}
	if len(pool) < len(removed) {
		return nil, fmt.Errorf("redraw %d for %s, only %d eligible: %w",
			len(removed), s.prize.Name, len(pool), ErrInsufficientPool)
	}

	replacements := e.sampler.Sample(pool, len(removed))
	if err := e.Commit(next, replacements); err != nil {
		return nil, err
	}
	if !e.settings.AllowRepeat {
		for _, id := range removed {
			e.roster.release(id)
		}
	}
	next.pending = next.pending[:0]
	for _, id := range s.pending {
		if !next.IsExcluded(id) {
			next.pending = append(next.pending, id)
		}
	}
	*s = *next

	logger.Infof("redraw %s: replaced %d absent winners", s.prize.Name, len(removed))
	return replacements, nil
}

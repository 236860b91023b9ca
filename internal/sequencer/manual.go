package sequencer

import (
	"errors"
	"fmt"
	"sync"

	"prizedraw/internal/models"
)

// ErrWrongPhase is returned when a manual step is taken out of order.
var ErrWrongPhase = errors.New("presentation is not in the required phase")

// Manual is the operator-driven presenter: no countdown, no timers. Begin
// opens Revealing, every Reveal shows winners as the operator draws them and
// Finish moves to Celebrating. Celebrating has no dwell and holds until the
// operator dismisses it: Cancel returns to Idle from anywhere and Begin
// starts the next presentation.
type Manual struct {
	hooks Hooks

	mu       sync.Mutex
	phase    Phase
	drawID   string
	revealed []models.Participant
}

func NewManual(hooks Hooks) *Manual {
	return &Manual{hooks: hooks}
}

// Begin starts presenting drawID, abandoning any previous presentation.
func (m *Manual) Begin(drawID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	m.drawID = drawID
	m.transitionLocked(Revealing)
}

// Reveal shows winners in order.
func (m *Manual) Reveal(winners ...models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Revealing {
		return fmt.Errorf("reveal in %s: %w", m.phase, ErrWrongPhase)
	}
	for _, w := range winners {
		m.revealed = append(m.revealed, w)
		if m.hooks.OnReveal != nil {
			m.hooks.OnReveal(m.drawID, w, len(m.revealed)-1)
		}
	}
	return nil
}

// Finish ends the reveal and fires OnComplete with everything revealed. The
// presenter stays in Celebrating until Cancel or Begin.
func (m *Manual) Finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Revealing {
		return fmt.Errorf("finish in %s: %w", m.phase, ErrWrongPhase)
	}
	m.transitionLocked(Celebrating)
	if m.hooks.OnComplete != nil {
		ws := make([]models.Participant, len(m.revealed))
		copy(ws, m.revealed)
		m.hooks.OnComplete(m.drawID, ws)
	}
	return nil
}

// Cancel returns to Idle and forgets what was revealed.
func (m *Manual) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Manual) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{DrawID: m.drawID, Phase: m.phase, Revealed: len(m.revealed), Total: len(m.revealed)}
}

func (m *Manual) resetLocked() {
	if m.phase != Idle {
		m.transitionLocked(Idle)
	}
	m.drawID = ""
	m.revealed = nil
}

func (m *Manual) transitionLocked(to Phase) {
	from := m.phase
	if !ManualFlow.Allows(from, to) {
		return
	}
	m.phase = to
	if m.hooks.OnPhase != nil {
		m.hooks.OnPhase(Transition{DrawID: m.drawID, From: from, To: to})
	}
}

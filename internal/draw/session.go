package draw

import (
	"prizedraw/internal/models"
)

// Session is the mutable draw state of one prize: the winners committed so
// far, the ids permanently excluded after being flagged absent, and the
// absentees flagged but not yet redrawn.
type Session struct {
	prize     models.Prize
	committed []models.Participant
	excluded  map[string]struct{}
	pending   []string
}

// NewSession starts an empty session for prize.
func NewSession(prize models.Prize) *Session {
	return &Session{
		prize:    prize,
		excluded: make(map[string]struct{}),
	}
}

// Prize returns the prize being drawn.
func (s *Session) Prize() models.Prize {
	return s.prize
}

// Winners returns a copy of the committed winners in draw order.
func (s *Session) Winners() []models.Participant {
	out := make([]models.Participant, len(s.committed))
	copy(out, s.committed)
	for i := range out {
		out[i].IsAbsent = s.isPending(out[i].ID)
	}
	return out
}

// Remaining is the number of winner slots still open.
func (s *Session) Remaining() int {
	if n := s.prize.DrawCount - len(s.committed); n > 0 {
		return n
	}
	return 0
}

// IsFull reports whether the winner target has been met.
func (s *Session) IsFull() bool {
	return len(s.committed) >= s.prize.DrawCount
}

// HasWinner reports whether id is a committed winner.
func (s *Session) HasWinner(id string) bool {
	return s.indexOf(id) >= 0
}

// IsExcluded reports whether id has been permanently excluded for this prize.
func (s *Session) IsExcluded(id string) bool {
	_, ok := s.excluded[id]
	return ok
}

// Excluded returns the permanently excluded ids.
func (s *Session) Excluded() []string {
	out := make([]string, 0, len(s.excluded))
	for id := range s.excluded {
		out = append(out, id)
	}
	return out
}

// PendingAbsent returns the winners flagged absent and awaiting a redraw.
func (s *Session) PendingAbsent() []string {
	out := make([]string, len(s.pending))
	copy(out, s.pending)
	return out
}

// SetAbsent flags or unflags a committed winner as absent. Flags only take
// effect when a redraw runs, so unflagging before that restores the winner
// with no exclusion recorded.
func (s *Session) SetAbsent(id string, absent bool) error {
	if !s.HasWinner(id) {
		return ErrUnknownParticipant
	}
	if absent {
		if !s.isPending(id) {
			s.pending = append(s.pending, id)
		}
		return nil
	}
	for i, p := range s.pending {
		if p == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Session) isPending(id string) bool {
	for _, p := range s.pending {
		if p == id {
			return true
		}
	}
	return false
}

func (s *Session) indexOf(id string) int {
	for i, w := range s.committed {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) clone() *Session {
	c := &Session{
		prize:     s.prize,
		committed: make([]models.Participant, len(s.committed)),
		excluded:  make(map[string]struct{}, len(s.excluded)),
		pending:   make([]string, len(s.pending)),
	}
	copy(c.committed, s.committed)
	copy(c.pending, s.pending)
	for id := range s.excluded {
		c.excluded[id] = struct{}{}
	}
	return c
}

package draw

import (
	"fmt"

	"prizedraw/internal/models"
)

// Roster owns every participant list of an event and the global selected set.
// It is the only writer of the selected flag: the engine marks winners on
// commit and releases them on redraw.
type Roster struct {
	lists    []*rosterList
	byList   map[string]*rosterList
	owner    map[string]string // participantID -> listID
	selected map[string]struct{}
}

type rosterList struct {
	list         models.ParticipantList
	participants []models.Participant
}

// NewRoster builds a roster from list data. Participant ids must be unique
// across all lists and list ids must be unique.
func NewRoster(data []models.ParticipantListData) (*Roster, error) {
	r := &Roster{
		byList:   make(map[string]*rosterList),
		owner:    make(map[string]string),
		selected: make(map[string]struct{}),
	}
	for _, d := range data {
		if err := r.AddList(d.List); err != nil {
			return nil, err
		}
		for _, p := range d.Participants {
			if err := r.AddParticipant(d.List.ID, p); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// AddList appends an empty list.
func (r *Roster) AddList(list models.ParticipantList) error {
	if list.ID == "" {
		return fmt.Errorf("%w: list id is empty", ErrInvalidConfiguration)
	}
	if _, exists := r.byList[list.ID]; exists {
		return fmt.Errorf("%w: duplicate list id %q", ErrInvalidConfiguration, list.ID)
	}
	l := &rosterList{list: list}
	r.lists = append(r.lists, l)
	r.byList[list.ID] = l
	return nil
}

// AddParticipant appends a participant to a list. A participant belongs to
// exactly one list.
func (r *Roster) AddParticipant(listID string, p models.Participant) error {
	l, ok := r.byList[listID]
	if !ok {
		return fmt.Errorf("%w: list %q does not exist", ErrInvalidConfiguration, listID)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: participant id is empty", ErrInvalidConfiguration)
	}
	if other, exists := r.owner[p.ID]; exists {
		return fmt.Errorf("%w: participant %q already belongs to list %q", ErrInvalidConfiguration, p.ID, other)
	}
	p.IsSelected = false
	p.IsAbsent = false
	l.participants = append(l.participants, p)
	r.owner[p.ID] = listID
	return nil
}

// HasList reports whether a list with the given id exists.
func (r *Roster) HasList(listID string) bool {
	_, ok := r.byList[listID]
	return ok
}

// Len returns the total number of participants across all lists.
func (r *Roster) Len() int {
	return len(r.owner)
}

// Participant looks up a participant by id.
func (r *Roster) Participant(id string) (models.Participant, bool) {
	listID, ok := r.owner[id]
	if !ok {
		return models.Participant{}, false
	}
	for _, p := range r.byList[listID].participants {
		if p.ID == id {
			p.IsSelected = r.IsSelected(id)
			return p, true
		}
	}
	return models.Participant{}, false
}

// BasePool returns the participants a prize draws from before any exclusion:
// the bound list, or the union of all lists in list order.
func (r *Roster) BasePool(boundListID string) ([]models.Participant, error) {
	if boundListID != "" {
		l, ok := r.byList[boundListID]
		if !ok {
			return nil, fmt.Errorf("%w: prize bound to missing list %q", ErrInvalidConfiguration, boundListID)
		}
		return r.project(l.participants), nil
	}
	pool := make([]models.Participant, 0, len(r.owner))
	for _, l := range r.lists {
		pool = append(pool, r.project(l.participants)...)
	}
	return pool, nil
}

func (r *Roster) project(ps []models.Participant) []models.Participant {
	out := make([]models.Participant, len(ps))
	for i, p := range ps {
		p.IsSelected = r.IsSelected(p.ID)
		out[i] = p
	}
	return out
}

// IsSelected reports whether the participant has won under the no-repeat policy.
func (r *Roster) IsSelected(id string) bool {
	_, ok := r.selected[id]
	return ok
}

func (r *Roster) markSelected(ps []models.Participant) {
	for _, p := range ps {
		r.selected[p.ID] = struct{}{}
	}
}

func (r *Roster) release(id string) {
	delete(r.selected, id)
}

// ResetSelection clears the selected flag of every participant.
func (r *Roster) ResetSelection() {
	r.selected = make(map[string]struct{})
}

// SelectedCount returns how many participants currently hold the selected flag.
func (r *Roster) SelectedCount() int {
	return len(r.selected)
}

// Snapshot returns a copy of every list with IsSelected projected.
func (r *Roster) Snapshot() []models.ParticipantListData {
	out := make([]models.ParticipantListData, 0, len(r.lists))
	for _, l := range r.lists {
		out = append(out, models.ParticipantListData{
			List:         l.list,
			Participants: r.project(l.participants),
		})
	}
	return out
}

package models

// Prize represents a single prize category in the drawing.
// BoundListID, when set, restricts the eligible pool to that participant list;
// empty means every list is eligible.
type Prize struct {
	ID          string `json:"id" validate:"required"`
	Number      int    `json:"number" validate:"gte=0"`
	Name        string `json:"name" validate:"required"`
	DrawCount   int    `json:"drawCount" validate:"gte=1"`
	BoundListID string `json:"participantListId,omitempty"`
}

// Participant represents a person entering the drawing.
// IsSelected is a read-only projection of the roster's selected set and is
// never consulted by the draw engine directly.
type Participant struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	IsSelected bool   `json:"isSelected,omitempty"`
	IsAbsent   bool   `json:"isAbsent,omitempty"`
}

type ParticipantList struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// ParticipantListData is a list together with the participants it owns.
type ParticipantListData struct {
	List         ParticipantList `json:"list"`
	Participants []Participant   `json:"participants" validate:"dive"`
}

// Settings holds the event-wide drawing policy.
type Settings struct {
	AllowRepeat bool   `json:"allowRepeat"`
	Title       string `json:"title"`
}

// LotteryResult stores the winners drawn so far for one prize.
type LotteryResult struct {
	Prize   Prize         `json:"prize"`
	Winners []Participant `json:"winners"`
}

// IDs returns the participant ids of the result's winners in draw order.
func (r LotteryResult) IDs() []string {
	ids := make([]string, 0, len(r.Winners))
	for _, w := range r.Winners {
		ids = append(ids, w.ID)
	}
	return ids
}

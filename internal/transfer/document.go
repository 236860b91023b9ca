package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"prizedraw/internal/models"
)

// Version is written into every exported document.
const Version = "1.0.0"

const exportDateLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrMalformedDocument is returned when an import fails shape or consistency
// checks. Nothing is applied on failure.
var ErrMalformedDocument = errors.New("malformed configuration document")

// Document is the persisted configuration of an event.
type Document struct {
	Version          string                       `json:"version" validate:"required"`
	ExportDate       string                       `json:"exportDate" validate:"required"`
	Prizes           []models.Prize               `json:"prizes" validate:"required,dive"`
	ParticipantLists []models.ParticipantListData `json:"participantLists" validate:"required,dive"`
	Settings         *DocumentSettings            `json:"settings" validate:"required"`
}

// DocumentSettings mirrors models.Settings with a pointer so a missing
// allowRepeat can be told apart from false.
type DocumentSettings struct {
	AllowRepeat *bool  `json:"allowRepeat" validate:"required"`
	Title       string `json:"title"`
}

// Config is a validated import ready to be applied.
type Config struct {
	Prizes           []models.Prize
	ParticipantLists []models.ParticipantListData
	Settings         models.Settings
}

var validate = validator.New()

// Export encodes an event's configuration. Selection state is not exported.
func Export(prizes []models.Prize, lists []models.ParticipantListData, settings models.Settings, now time.Time) ([]byte, error) {
	allowRepeat := settings.AllowRepeat
	doc := Document{
		Version:          Version,
		ExportDate:       now.UTC().Format(exportDateLayout),
		Prizes:           make([]models.Prize, len(prizes)),
		ParticipantLists: make([]models.ParticipantListData, 0, len(lists)),
		Settings:         &DocumentSettings{AllowRepeat: &allowRepeat, Title: settings.Title},
	}
	copy(doc.Prizes, prizes)
	for _, l := range lists {
		ps := make([]models.Participant, len(l.Participants))
		for i, p := range l.Participants {
			ps[i] = models.Participant{ID: p.ID, Name: p.Name}
		}
		doc.ParticipantLists = append(doc.ParticipantLists, models.ParticipantListData{List: l.List, Participants: ps})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import decodes and validates a document. Unknown fields are ignored; wrong
// types, missing sections and inconsistent references reject the whole
// document.
func Import(data []byte) (*Config, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := checkReferences(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	cfg := &Config{
		Prizes:           doc.Prizes,
		ParticipantLists: make([]models.ParticipantListData, 0, len(doc.ParticipantLists)),
		Settings:         models.Settings{AllowRepeat: *doc.Settings.AllowRepeat, Title: doc.Settings.Title},
	}
	for _, l := range doc.ParticipantLists {
		ps := make([]models.Participant, len(l.Participants))
		for i, p := range l.Participants {
			ps[i] = models.Participant{ID: p.ID, Name: p.Name}
		}
		cfg.ParticipantLists = append(cfg.ParticipantLists, models.ParticipantListData{List: l.List, Participants: ps})
	}
	return cfg, nil
}

func checkReferences(doc *Document) error {
	lists := make(map[string]bool, len(doc.ParticipantLists))
	people := make(map[string]bool)
	for _, l := range doc.ParticipantLists {
		if lists[l.List.ID] {
			return fmt.Errorf("duplicate list id %q", l.List.ID)
		}
		lists[l.List.ID] = true
		for _, p := range l.Participants {
			if people[p.ID] {
				return fmt.Errorf("participant %q appears more than once", p.ID)
			}
			people[p.ID] = true
		}
	}

	prizes := make(map[string]bool, len(doc.Prizes))
	bound := make(map[string]string)
	for _, p := range doc.Prizes {
		if prizes[p.ID] {
			return fmt.Errorf("duplicate prize id %q", p.ID)
		}
		prizes[p.ID] = true
		if p.BoundListID == "" {
			continue
		}
		if !lists[p.BoundListID] {
			return fmt.Errorf("prize %q bound to missing list %q", p.Name, p.BoundListID)
		}
		if other, ok := bound[p.BoundListID]; ok {
			return fmt.Errorf("list %q bound by both %q and %q", p.BoundListID, other, p.Name)
		}
		bound[p.BoundListID] = p.Name
	}
	return nil
}

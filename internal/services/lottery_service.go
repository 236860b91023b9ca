package services

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"prizedraw/internal/draw"
	"prizedraw/internal/models"
	"prizedraw/internal/sequencer"
	"prizedraw/internal/transfer"
)

var (
	ErrPrizeNotFound = errors.New("prize not found")
	ErrListNotFound  = errors.New("participant list not found")
	ErrNoActiveDraw  = errors.New("no draw in progress")
)

// Options configure every tenant session the service creates.
type Options struct {
	// Manual selects operator-driven reveals instead of the timed sequence.
	Manual bool
	Timing sequencer.Timing
	Clock  clockwork.Clock
	Player sequencer.Player
	Title  string
	// Observe, if set, is called on every presentation phase change.
	Observe func(tenantID string, tr sequencer.Transition)
}

// LotterySession holds the data for a single tenant.
type LotterySession struct {
	mu sync.Mutex

	Prizes  []models.Prize
	engine  *draw.Engine
	ledger  *draw.Ledger
	draws   map[string]*draw.Session // key: prize id
	current *draw.Session
	drawID  string
	present presentation

	LastActivity time.Time
}

// LotteryService manages multiple lottery sessions.
type LotteryService struct {
	mu       sync.RWMutex
	sessions map[string]*LotterySession // Key: tenantID
	opts     Options
}

// NewLotteryService creates and initializes a new LotteryService.
func NewLotteryService(opts Options) *LotteryService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Timing == (sequencer.Timing{}) {
		opts.Timing = sequencer.DefaultTiming()
	}
	return &LotteryService{
		sessions: make(map[string]*LotterySession),
		opts:     opts,
	}
}

// getSession returns a session for a tenant, creating one if it doesn't exist.
func (s *LotteryService) getSession(tenantID string) *LotterySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[tenantID]
	if !exists {
		roster, _ := draw.NewRoster(nil)
		session = &LotterySession{
			Prizes:  make([]models.Prize, 0),
			engine:  draw.NewEngine(roster, nil, models.Settings{Title: s.opts.Title}),
			ledger:  draw.NewLedger(),
			draws:   make(map[string]*draw.Session),
			present: s.newPresentation(tenantID),
		}
		s.sessions[tenantID] = session
	}
	session.LastActivity = s.opts.Clock.Now()
	return session
}

// with runs fn with the tenant's session locked.
func (s *LotteryService) with(tenantID string, fn func(*LotterySession) error) error {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()
	return fn(session)
}

func (ls *LotterySession) prize(prizeID string) (models.Prize, int, error) {
	for i, p := range ls.Prizes {
		if p.ID == prizeID {
			return p, i, nil
		}
	}
	return models.Prize{}, -1, fmt.Errorf("%w: %q", ErrPrizeNotFound, prizeID)
}

// Snapshot is the full setup of a tenant.
type Snapshot struct {
	Settings         models.Settings              `json:"settings"`
	Prizes           []models.Prize               `json:"prizes"`
	ParticipantLists []models.ParticipantListData `json:"participantLists"`
}

// Snapshot returns the tenant's prizes, lists and settings.
func (s *LotteryService) Snapshot(tenantID string) Snapshot {
	var snap Snapshot
	_ = s.with(tenantID, func(ls *LotterySession) error {
		snap = Snapshot{
			Settings:         ls.engine.Settings(),
			Prizes:           append([]models.Prize(nil), ls.Prizes...),
			ParticipantLists: ls.engine.Roster().Snapshot(),
		}
		return nil
	})
	return snap
}

// AddList adds an empty participant list. A blank id gets a generated one.
func (s *LotteryService) AddList(tenantID, id, name string) (models.ParticipantList, error) {
	if name == "" {
		return models.ParticipantList{}, fmt.Errorf("%w: list name is empty", draw.ErrInvalidConfiguration)
	}
	if id == "" {
		id = uuid.NewString()
	}
	list := models.ParticipantList{ID: id, Name: name}
	err := s.with(tenantID, func(ls *LotterySession) error {
		return ls.engine.Roster().AddList(list)
	})
	return list, err
}

// AddParticipant adds a participant to a list. A blank id gets a generated one.
func (s *LotteryService) AddParticipant(tenantID, listID, id, name string) (models.Participant, error) {
	if name == "" {
		return models.Participant{}, fmt.Errorf("%w: participant name is empty", draw.ErrInvalidConfiguration)
	}
	if id == "" {
		id = uuid.NewString()
	}
	p := models.Participant{ID: id, Name: name}
	err := s.with(tenantID, func(ls *LotterySession) error {
		roster := ls.engine.Roster()
		if !roster.HasList(listID) {
			return fmt.Errorf("%w: %q", ErrListNotFound, listID)
		}
		return roster.AddParticipant(listID, p)
	})
	return p, err
}

// ImportParticipantsCSV appends "id,name" rows to a list. Rows that would
// duplicate an existing participant are skipped.
func (s *LotteryService) ImportParticipantsCSV(tenantID, listID string, r io.Reader) (int, error) {
	rows, err := transfer.ReadParticipantsCSV(r)
	if err != nil {
		return 0, err
	}
	added := 0
	err = s.with(tenantID, func(ls *LotterySession) error {
		roster := ls.engine.Roster()
		if !roster.HasList(listID) {
			return fmt.Errorf("%w: %q", ErrListNotFound, listID)
		}
		for _, p := range rows {
			if err := roster.AddParticipant(listID, p); err != nil {
				logger.Infof("Skipping participant CSV row %s: %v", p.ID, err)
				continue
			}
			added++
		}
		return nil
	})
	return added, err
}

// AddPrize adds a prize. drawCount must be positive and a bound list must
// exist and not already be bound by another prize.
func (s *LotteryService) AddPrize(tenantID, name string, drawCount int, listID string) (models.Prize, error) {
	var prize models.Prize
	err := s.with(tenantID, func(ls *LotterySession) error {
		var err error
		prize, err = ls.addPrize(name, drawCount, listID)
		return err
	})
	return prize, err
}

func (ls *LotterySession) addPrize(name string, drawCount int, listID string) (models.Prize, error) {
	if name == "" {
		return models.Prize{}, fmt.Errorf("%w: prize name is empty", draw.ErrInvalidConfiguration)
	}
	if drawCount < 1 {
		return models.Prize{}, fmt.Errorf("%w: draw count must be at least 1, got %d", draw.ErrInvalidConfiguration, drawCount)
	}
	if listID != "" {
		if !ls.engine.Roster().HasList(listID) {
			return models.Prize{}, fmt.Errorf("%w: %q", ErrListNotFound, listID)
		}
		for _, p := range ls.Prizes {
			if p.BoundListID == listID {
				return models.Prize{}, fmt.Errorf("%w: list %q is already bound to %q", draw.ErrInvalidConfiguration, listID, p.Name)
			}
		}
	}
	number := 1
	for _, p := range ls.Prizes {
		if p.Number >= number {
			number = p.Number + 1
		}
	}
	prize := models.Prize{ID: uuid.NewString(), Number: number, Name: name, DrawCount: drawCount, BoundListID: listID}
	ls.Prizes = append(ls.Prizes, prize)
	return prize, nil
}

// ImportPrizesCSV adds every valid "name,drawCount[,listId]" row.
func (s *LotteryService) ImportPrizesCSV(tenantID string, r io.Reader) (int, error) {
	rows, err := transfer.ReadPrizesCSV(r)
	if err != nil {
		return 0, err
	}
	added := 0
	err = s.with(tenantID, func(ls *LotterySession) error {
		for _, row := range rows {
			if _, err := ls.addPrize(row.Name, row.DrawCount, row.BoundListID); err != nil {
				logger.Infof("Skipping prize CSV row %q: %v", row.Name, err)
				continue
			}
			added++
		}
		return nil
	})
	return added, err
}

// RemovePrize deletes a prize that has not been drawn yet.
func (s *LotteryService) RemovePrize(tenantID, prizeID string) error {
	return s.with(tenantID, func(ls *LotterySession) error {
		_, i, err := ls.prize(prizeID)
		if err != nil {
			return err
		}
		if _, drawn := ls.ledger.Get(prizeID); drawn || ls.draws[prizeID] != nil {
			return fmt.Errorf("%w: prize %q has already been drawn", draw.ErrInvalidConfiguration, prizeID)
		}
		ls.Prizes = append(ls.Prizes[:i], ls.Prizes[i+1:]...)
		return nil
	})
}

// UpdateSettings replaces the tenant's settings. allowRepeat is frozen once
// any prize has winners; Reset unfreezes it.
func (s *LotteryService) UpdateSettings(tenantID string, settings models.Settings) error {
	return s.with(tenantID, func(ls *LotterySession) error {
		if settings.AllowRepeat != ls.engine.Settings().AllowRepeat {
			for _, sess := range ls.draws {
				if len(sess.Winners()) > 0 {
					return fmt.Errorf("%w: allowRepeat cannot change after winners are drawn", draw.ErrInvalidConfiguration)
				}
			}
		}
		ls.engine.SetSettings(settings)
		return nil
	})
}

// ExportConfig serialises the tenant's setup.
func (s *LotteryService) ExportConfig(tenantID string) ([]byte, error) {
	snap := s.Snapshot(tenantID)
	return transfer.Export(snap.Prizes, snap.ParticipantLists, snap.Settings, time.Now())
}

// ImportConfig replaces the tenant's setup with a document. The document is
// fully validated first; on error the current state is untouched. A
// successful import resets every draw.
func (s *LotteryService) ImportConfig(tenantID string, data []byte) error {
	cfg, err := transfer.Import(data)
	if err != nil {
		logger.Warningf("Rejected configuration import for tenant %s: %v", tenantID, err)
		return err
	}
	roster, err := draw.NewRoster(cfg.ParticipantLists)
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrMalformedDocument, err)
	}

	return s.with(tenantID, func(ls *LotterySession) error {
		ls.present.Cancel()
		ls.Prizes = cfg.Prizes
		ls.engine = draw.NewEngine(roster, nil, cfg.Settings)
		ls.ledger.Reset()
		ls.draws = make(map[string]*draw.Session)
		ls.current = nil
		ls.drawID = ""
		logger.Infof("Imported configuration for tenant %s: %d prizes, %d participants", tenantID, len(cfg.Prizes), roster.Len())
		return nil
	})
}

// CleanUpInactiveSessions removes sessions idle for longer than idleAfter.
func (s *LotteryService) CleanUpInactiveSessions(idleAfter time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for tenantID, session := range s.sessions {
		if s.opts.Clock.Since(session.LastActivity) > idleAfter {
			session.present.Cancel()
			delete(s.sessions, tenantID)
			removed++
			logger.Infof("Removed inactive session for tenant: %s", tenantID)
		}
	}
	return removed
}

// ClearSession removes all data associated with a specific tenant.
func (s *LotteryService) ClearSession(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[tenantID]; ok {
		session.present.Cancel()
		delete(s.sessions, tenantID)
	}
	logger.Infof("Cleared session for tenant: %s", tenantID)
}

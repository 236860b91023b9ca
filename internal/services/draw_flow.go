package services

import (
	"fmt"
	"io"

	"github.com/google/logger"
	"github.com/google/uuid"

	"prizedraw/internal/draw"
	"prizedraw/internal/models"
	"prizedraw/internal/sequencer"
	"prizedraw/internal/transfer"
)

// DrawView is what the drawing screen shows for the active prize.
type DrawView struct {
	Prize   models.Prize         `json:"prize"`
	Winners []models.Participant `json:"winners"`
	// Latest holds the winners added by the call that produced this view.
	Latest       []models.Participant `json:"latest,omitempty"`
	Exhausted    bool                 `json:"exhausted"`
	Progress     draw.Progress        `json:"progress"`
	Presentation sequencer.State      `json:"presentation"`
}

// PrizeOverview is one row of the overview screen.
type PrizeOverview struct {
	Prize    models.Prize         `json:"prize"`
	Progress draw.Progress        `json:"progress"`
	Winners  []models.Participant `json:"winners"`
}

// Overview summarises every prize of a tenant.
type Overview struct {
	Title             string          `json:"title"`
	Settings          models.Settings `json:"settings"`
	TotalParticipants int             `json:"totalParticipants"`
	Available         int             `json:"available"`
	Prizes            []PrizeOverview `json:"prizes"`
	ActivePrizeID     string          `json:"activePrizeId,omitempty"`
	Presentation      sequencer.State `json:"presentation"`
}

func (ls *LotterySession) active() (*draw.Session, error) {
	if ls.current == nil {
		return nil, ErrNoActiveDraw
	}
	return ls.current, nil
}

// record mirrors the active session into the results ledger.
func (ls *LotterySession) record() {
	winners := ls.current.Winners()
	if len(winners) == 0 {
		return
	}
	ls.ledger.Upsert(ls.current.Prize(), winners)
}

// freeze stops any presentation and closes the active session.
func (ls *LotterySession) freeze() {
	ls.present.Cancel()
	if ls.current == nil {
		return
	}
	ls.record()
	ls.current = nil
	ls.drawID = ""
}

func (ls *LotterySession) view(latest []models.Participant, exhausted bool) (DrawView, error) {
	sess, err := ls.active()
	if err != nil {
		return DrawView{}, err
	}
	progress, err := ls.engine.Progress(sess.Prize(), sess)
	if err != nil {
		return DrawView{}, err
	}
	return DrawView{
		Prize:        sess.Prize(),
		Winners:      sess.Winners(),
		Latest:       latest,
		Exhausted:    exhausted || progress.Exhausted,
		Progress:     progress,
		Presentation: ls.present.State(),
	}, nil
}

// StartDraw enters the drawing screen for a prize. Re-entering a prize
// resumes its session, so its winners and exclusions are kept.
func (s *LotteryService) StartDraw(tenantID, prizeID string) (DrawView, error) {
	var view DrawView
	err := s.with(tenantID, func(ls *LotterySession) error {
		prize, _, err := ls.prize(prizeID)
		if err != nil {
			return err
		}
		sess := ls.draws[prizeID]
		if sess == nil {
			sess = draw.NewSession(prize)
		}
		pool, err := ls.engine.Eligible(sess)
		if err != nil {
			return err
		}
		if len(sess.Winners()) == 0 && len(pool) == 0 {
			return fmt.Errorf("%s has no eligible participants: %w", prize.Name, draw.ErrInsufficientPool)
		}

		ls.freeze()
		ls.draws[prizeID] = sess
		ls.current = sess
		ls.drawID = uuid.NewString()
		ls.present.begin(ls.drawID)
		logger.Infof("tenant %s: started draw %s for prize %q (%d eligible)", tenantID, ls.drawID, prize.Name, len(pool))

		view, err = ls.view(nil, false)
		return err
	})
	return view, err
}

// DrawNext draws a single winner for the active prize.
func (s *LotteryService) DrawNext(tenantID string) (DrawView, error) {
	return s.drawWith(tenantID, draw.Stepwise)
}

// DrawAll draws every remaining winner for the active prize at once.
func (s *LotteryService) DrawAll(tenantID string) (DrawView, error) {
	return s.drawWith(tenantID, draw.Batch)
}

func (s *LotteryService) drawWith(tenantID string, mode draw.Mode) (DrawView, error) {
	var view DrawView
	err := s.with(tenantID, func(ls *LotterySession) error {
		sess, err := ls.active()
		if err != nil {
			return err
		}
		pool, err := ls.engine.Eligible(sess)
		if err != nil {
			return err
		}
		out, err := ls.engine.Draw(sess, mode)
		if err != nil {
			return err
		}
		ls.record()
		ls.present.show(ls.drawID, len(pool), out.Winners, sess.IsFull() || out.Exhausted)

		view, err = ls.view(out.Winners, out.Exhausted)
		return err
	})
	return view, err
}

// SetAbsent flags or unflags a winner of the active prize. Nothing is redrawn
// until Redraw is called.
func (s *LotteryService) SetAbsent(tenantID, participantID string, absent bool) (DrawView, error) {
	var view DrawView
	err := s.with(tenantID, func(ls *LotterySession) error {
		sess, err := ls.active()
		if err != nil {
			return err
		}
		if err := sess.SetAbsent(participantID, absent); err != nil {
			return err
		}
		view, err = ls.view(nil, false)
		return err
	})
	return view, err
}

// Redraw replaces every winner flagged absent on the active prize.
func (s *LotteryService) Redraw(tenantID string) (DrawView, error) {
	return s.redrawWith(tenantID, func(e *draw.Engine, sess *draw.Session) ([]models.Participant, error) {
		return e.Redraw(sess)
	})
}

// MarkAbsentAndRedraw replaces the given winners in one step.
func (s *LotteryService) MarkAbsentAndRedraw(tenantID string, participantIDs []string) (DrawView, error) {
	return s.redrawWith(tenantID, func(e *draw.Engine, sess *draw.Session) ([]models.Participant, error) {
		return e.MarkAbsentAndRedraw(sess, participantIDs)
	})
}

func (s *LotteryService) redrawWith(tenantID string, fn func(*draw.Engine, *draw.Session) ([]models.Participant, error)) (DrawView, error) {
	var view DrawView
	err := s.with(tenantID, func(ls *LotterySession) error {
		sess, err := ls.active()
		if err != nil {
			return err
		}
		pool, err := ls.engine.Eligible(sess)
		if err != nil {
			return err
		}
		replacements, err := fn(ls.engine, sess)
		if err != nil {
			return err
		}
		if len(replacements) > 0 {
			ls.record()
			ls.present.show(ls.drawID, len(pool), replacements, sess.IsFull())
			logger.Infof("tenant %s: redrew %d winners for %q", tenantID, len(replacements), sess.Prize().Name)
		}
		view, err = ls.view(replacements, false)
		return err
	})
	return view, err
}

// CurrentDraw returns the active prize's view.
func (s *LotteryService) CurrentDraw(tenantID string) (DrawView, error) {
	var view DrawView
	err := s.with(tenantID, func(ls *LotterySession) error {
		var err error
		view, err = ls.view(nil, false)
		return err
	})
	return view, err
}

// BackToOverview leaves the drawing screen. Any running presentation is
// cancelled and the prize's winners are frozen into the results.
func (s *LotteryService) BackToOverview(tenantID string) {
	_ = s.with(tenantID, func(ls *LotterySession) error {
		ls.freeze()
		return nil
	})
}

// Reset discards every draw and result while keeping prizes and lists.
func (s *LotteryService) Reset(tenantID string) {
	_ = s.with(tenantID, func(ls *LotterySession) error {
		ls.present.Cancel()
		ls.engine.Roster().ResetSelection()
		ls.ledger.Reset()
		ls.draws = make(map[string]*draw.Session)
		ls.current = nil
		ls.drawID = ""
		logger.Infof("tenant %s: lottery reset", tenantID)
		return nil
	})
}

// Overview returns the progress of every prize.
func (s *LotteryService) Overview(tenantID string) (Overview, error) {
	var ov Overview
	err := s.with(tenantID, func(ls *LotterySession) error {
		settings := ls.engine.Settings()
		roster := ls.engine.Roster()
		ov = Overview{
			Title:             settings.Title,
			Settings:          settings,
			TotalParticipants: roster.Len(),
			Available:         roster.Len(),
			Prizes:            make([]PrizeOverview, 0, len(ls.Prizes)),
			Presentation:      ls.present.State(),
		}
		if !settings.AllowRepeat {
			ov.Available -= roster.SelectedCount()
		}
		if ls.current != nil {
			ov.ActivePrizeID = ls.current.Prize().ID
		}
		for _, prize := range ls.Prizes {
			sess := ls.draws[prize.ID]
			progress, err := ls.engine.Progress(prize, sess)
			if err != nil {
				return err
			}
			row := PrizeOverview{Prize: prize, Progress: progress}
			if sess != nil {
				row.Winners = sess.Winners()
			}
			ov.Prizes = append(ov.Prizes, row)
		}
		return nil
	})
	return ov, err
}

// Results returns the ledger in the order prizes were first drawn.
func (s *LotteryService) Results(tenantID string) []models.LotteryResult {
	var results []models.LotteryResult
	_ = s.with(tenantID, func(ls *LotterySession) error {
		results = ls.ledger.All()
		return nil
	})
	return results
}

// WriteResultsCSV exports the ledger as a spreadsheet-friendly CSV.
func (s *LotteryService) WriteResultsCSV(tenantID string, w io.Writer) error {
	return transfer.WriteResultsCSV(w, s.Results(tenantID))
}

// PresentationState reports the tenant's presentation.
func (s *LotteryService) PresentationState(tenantID string) sequencer.State {
	var st sequencer.State
	_ = s.with(tenantID, func(ls *LotterySession) error {
		st = ls.present.State()
		return nil
	})
	return st
}

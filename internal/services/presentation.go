package services

import (
	"github.com/google/logger"

	"prizedraw/internal/models"
	"prizedraw/internal/sequencer"
)

// presentation adapts a sequencer.Presenter to the draw flow. show is called
// after every commit with the winners that were just added; done reports
// whether the prize has no further draws to present.
type presentation interface {
	sequencer.Presenter
	begin(drawID string)
	show(drawID string, poolSize int, winners []models.Participant, done bool)
}

type timedPresentation struct {
	*sequencer.Sequencer
}

func (p timedPresentation) begin(string) {
	p.Cancel()
}

func (p timedPresentation) show(drawID string, poolSize int, winners []models.Participant, _ bool) {
	p.Start(drawID, poolSize, winners)
}

type manualPresentation struct {
	*sequencer.Manual
}

func (p manualPresentation) begin(drawID string) {
	p.Begin(drawID)
}

func (p manualPresentation) show(drawID string, _ int, winners []models.Participant, done bool) {
	if st := p.State(); st.Phase != sequencer.Revealing || st.DrawID != drawID {
		p.Begin(drawID)
	}
	if err := p.Reveal(winners...); err != nil {
		logger.Warningf("manual reveal for draw %s: %v", drawID, err)
		return
	}
	if done {
		if err := p.Finish(); err != nil {
			logger.Warningf("manual finish for draw %s: %v", drawID, err)
		}
	}
}

func (s *LotteryService) newPresentation(tenantID string) presentation {
	hooks := sequencer.Hooks{
		OnPhase: func(tr sequencer.Transition) {
			logger.Infof("tenant %s draw %s: %s -> %s", tenantID, tr.DrawID, tr.From, tr.To)
			if s.opts.Observe != nil {
				s.opts.Observe(tenantID, tr)
			}
		},
		OnComplete: func(drawID string, winners []models.Participant) {
			logger.Infof("tenant %s draw %s: presented %d winners", tenantID, drawID, len(winners))
		},
	}
	if s.opts.Manual {
		return manualPresentation{sequencer.NewManual(hooks)}
	}
	player := s.opts.Player
	if player == nil {
		player = sequencer.Silent{}
	}
	return timedPresentation{sequencer.New(s.opts.Clock, player, s.opts.Timing, hooks)}
}

package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"prizedraw/internal/models"
)

// Sequencer drives one draw at a time through TimedFlow. Each cycle runs on
// its own goroutine and is tagged with a generation; Cancel and Start bump the
// generation so a superseded cycle can never emit again.
type Sequencer struct {
	clock  clockwork.Clock
	player Player
	timing Timing
	hooks  Hooks

	gen *atomic.Uint64

	mu       sync.Mutex
	phase    Phase
	drawID   string
	revealed int
	total    int
	cancel   context.CancelFunc
}

// cycle is the immutable input of one run.
type cycle struct {
	ctx      context.Context
	gen      uint64
	poolSize int
	winners  []models.Participant
}

type stage struct {
	cue   Cue
	dwell func(s *Sequencer, c *cycle) bool
}

var stages = map[Phase]stage{
	Preparing:   {cue: CueCountdown, dwell: (*Sequencer).countdown},
	Activating:  {cue: CueMagicActivation, dwell: (*Sequencer).activate},
	Shuffling:   {cue: CueShuffling, dwell: (*Sequencer).shuffle},
	Revealing:   {cue: CueVictory, dwell: (*Sequencer).reveal},
	Celebrating: {cue: CueCelebration, dwell: (*Sequencer).celebrate},
}

// New returns an idle sequencer. A nil clock uses the real clock and a nil
// player is Silent.
func New(clock clockwork.Clock, player Player, timing Timing, hooks Hooks) *Sequencer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if player == nil {
		player = Silent{}
	}
	return &Sequencer{
		clock:  clock,
		player: player,
		timing: timing,
		hooks:  hooks,
		gen:    atomic.NewUint64(0),
	}
}

// Start cancels any running cycle and begins a new one at Preparing.
// It returns the cycle's generation.
func (s *Sequencer) Start(drawID string, poolSize int, winners []models.Participant) uint64 {
	ws := make([]models.Participant, len(winners))
	copy(ws, winners)

	s.mu.Lock()
	s.resetLocked()
	gen := s.gen.Inc()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.drawID = drawID
	s.total = len(ws)
	s.transitionLocked(Preparing)
	s.mu.Unlock()

	go s.run(&cycle{ctx: ctx, gen: gen, poolSize: poolSize, winners: ws})
	return gen
}

// Cancel stops the running cycle, if any, and returns to Idle. Calling it
// while idle does nothing.
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// State returns the current phase and reveal counters.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{DrawID: s.drawID, Phase: s.phase, Revealed: s.revealed, Total: s.total}
}

// Generation returns the generation of the latest cycle.
func (s *Sequencer) Generation() uint64 {
	return s.gen.Load()
}

func (s *Sequencer) resetLocked() {
	s.gen.Inc()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.phase != Idle {
		s.transitionLocked(Idle)
	}
	s.drawID = ""
	s.revealed = 0
	s.total = 0
}

func (s *Sequencer) transitionLocked(to Phase) {
	from := s.phase
	if !TimedFlow.Allows(from, to) {
		logger.Errorf("sequencer: illegal transition %s -> %s", from, to)
		return
	}
	s.phase = to
	if s.hooks.OnPhase != nil {
		s.hooks.OnPhase(Transition{DrawID: s.drawID, From: from, To: to})
	}
}

// locked runs fn under the lock if gen is still current.
func (s *Sequencer) locked(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return false
	}
	fn()
	return true
}

func (s *Sequencer) run(c *cycle) {
	for phase := Preparing; phase != Idle; phase = TimedFlow[phase] {
		if phase != Preparing {
			next := phase
			if !s.locked(c.gen, func() { s.transitionLocked(next) }) {
				return
			}
		}
		st := stages[phase]
		if !st.dwell(s, c) {
			return
		}
		if !s.await(c, phase, st.cue) {
			return
		}
	}

	s.locked(c.gen, func() {
		if s.hooks.OnComplete != nil {
			s.hooks.OnComplete(s.drawID, c.winners)
		}
		s.resetLocked()
	})
}

// sleep waits d on the sequencer clock. It reports false if the cycle was
// cancelled first.
func (s *Sequencer) sleep(c *cycle, d time.Duration) bool {
	if d > 0 {
		t := s.clock.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.Chan():
		case <-c.ctx.Done():
			return false
		}
	}
	return s.gen.Load() == c.gen
}

// await plays the phase's cue and races its end against the backup timer.
func (s *Sequencer) await(c *cycle, phase Phase, cue Cue) bool {
	ctx, stop := context.WithCancel(c.ctx)
	defer stop()

	ended := make(chan error, 1)
	go func() { ended <- s.player.Play(ctx, cue) }()

	backup := s.clock.NewTimer(s.timing.CueBackup)
	defer backup.Stop()

	select {
	case err := <-ended:
		if err != nil {
			logger.Warningf("sequencer: %s cue %q failed: %v", phase, cue, err)
		}
	case <-backup.Chan():
		logger.Warningf("sequencer: %s cue %q did not end within %s, moving on", phase, cue, s.timing.CueBackup)
	case <-c.ctx.Done():
		return false
	}
	return s.gen.Load() == c.gen
}

func (s *Sequencer) countdown(c *cycle) bool {
	for n := s.timing.CountdownTicks; n > 0; n-- {
		remaining := n
		ok := s.locked(c.gen, func() {
			if s.hooks.OnTick != nil {
				s.hooks.OnTick(s.drawID, remaining)
			}
		})
		if !ok || !s.sleep(c, s.timing.Tick) {
			return false
		}
	}
	return true
}

func (s *Sequencer) activate(c *cycle) bool {
	return s.sleep(c, s.timing.Activation)
}

func (s *Sequencer) shuffle(c *cycle) bool {
	return s.sleep(c, s.timing.ShuffleDwell(c.poolSize))
}

func (s *Sequencer) reveal(c *cycle) bool {
	var elapsed time.Duration
	if len(c.winners) == 0 {
		elapsed = s.timing.RevealFirst
		if !s.sleep(c, elapsed) {
			return false
		}
	}
	for i, w := range c.winners {
		at := s.timing.RevealAt(i)
		if !s.sleep(c, at-elapsed) {
			return false
		}
		elapsed = at
		ok := s.locked(c.gen, func() {
			s.revealed = i + 1
			if s.hooks.OnReveal != nil {
				s.hooks.OnReveal(s.drawID, w, i)
			}
		})
		if !ok {
			return false
		}
	}
	return s.sleep(c, s.timing.RevealHold)
}

func (s *Sequencer) celebrate(c *cycle) bool {
	return s.sleep(c, s.timing.Celebration)
}

package sequencer

import (
	"fmt"
	"time"

	"prizedraw/internal/models"
)

// Phase is a presentation state. Idle is both initial and terminal.
type Phase int

const (
	Idle Phase = iota
	Preparing
	Activating
	Shuffling
	Revealing
	Celebrating
)

var phaseNames = [...]string{"idle", "preparing", "activating", "shuffling", "revealing", "celebrating"}

func (p Phase) String() string {
	if p < Idle || p > Celebrating {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Flow is a transition table: the single successor of each phase.
// Any phase may also drop back to Idle.
type Flow map[Phase]Phase

var (
	// TimedFlow is the full countdown-to-celebration choreography.
	TimedFlow = Flow{
		Idle:        Preparing,
		Preparing:   Activating,
		Activating:  Shuffling,
		Shuffling:   Revealing,
		Revealing:   Celebrating,
		Celebrating: Idle,
	}

	// ManualFlow skips the timed lead-in; the operator drives each reveal.
	ManualFlow = Flow{
		Idle:        Revealing,
		Revealing:   Celebrating,
		Celebrating: Idle,
	}
)

// Allows reports whether from -> to is a legal transition.
func (f Flow) Allows(from, to Phase) bool {
	if to == Idle {
		return true
	}
	next, ok := f[from]
	return ok && next == to
}

// Transition is delivered to OnPhase on every phase change.
type Transition struct {
	DrawID string `json:"drawId"`
	From   Phase  `json:"from"`
	To     Phase  `json:"to"`
}

// Hooks receive presentation events. They run with the presenter locked and
// must not call back into it; a hook that needs to must hand off to a goroutine.
type Hooks struct {
	OnPhase    func(Transition)
	OnTick     func(drawID string, remaining int)
	OnReveal   func(drawID string, winner models.Participant, index int)
	OnComplete func(drawID string, winners []models.Participant)
}

// State is a point-in-time view of a presenter.
type State struct {
	DrawID   string `json:"drawId,omitempty"`
	Phase    Phase  `json:"phase"`
	Revealed int    `json:"revealed"`
	Total    int    `json:"total"`
}

// Presenter is satisfied by both the timed Sequencer and the Manual variant.
type Presenter interface {
	State() State
	Cancel()
}

// Timing holds every dwell of the timed flow.
type Timing struct {
	CountdownTicks int           `mapstructure:"countdownticks"`
	Tick           time.Duration `mapstructure:"tick"`
	Activation     time.Duration `mapstructure:"activation"`
	ShufflePerHead time.Duration `mapstructure:"shuffleperhead"`
	ShuffleMin     time.Duration `mapstructure:"shufflemin"`
	ShuffleMax     time.Duration `mapstructure:"shufflemax"`
	RevealFirst    time.Duration `mapstructure:"revealfirst"`
	RevealStep     time.Duration `mapstructure:"revealstep"`
	RevealHold     time.Duration `mapstructure:"revealhold"`
	Celebration    time.Duration `mapstructure:"celebration"`
	CueBackup      time.Duration `mapstructure:"cuebackup"`
}

// DefaultTiming returns the stage timings used at live events.
func DefaultTiming() Timing {
	return Timing{
		CountdownTicks: 3,
		Tick:           time.Second,
		Activation:     2 * time.Second,
		ShufflePerHead: 50 * time.Millisecond,
		ShuffleMin:     4 * time.Second,
		ShuffleMax:     6 * time.Second,
		RevealFirst:    time.Second,
		RevealStep:     500 * time.Millisecond,
		RevealHold:     2 * time.Second,
		Celebration:    3 * time.Second,
		CueBackup:      3 * time.Second,
	}
}

// ShuffleDwell scales with the pool size, clamped to [ShuffleMin, ShuffleMax].
func (t Timing) ShuffleDwell(poolSize int) time.Duration {
	d := time.Duration(poolSize) * t.ShufflePerHead
	if d < t.ShuffleMin {
		d = t.ShuffleMin
	}
	if t.ShuffleMax > 0 && d > t.ShuffleMax {
		d = t.ShuffleMax
	}
	return d
}

// RevealAt is the offset from entering Revealing at which winner i is shown.
func (t Timing) RevealAt(i int) time.Duration {
	return t.RevealFirst + time.Duration(i)*t.RevealStep
}

package sequencer

import "context"

// Cue names an audio track played when a phase's dwell ends.
type Cue string

const (
	CueCountdown       Cue = "countdown"
	CueMagicActivation Cue = "magic-activation"
	CueShuffling       Cue = "shuffling"
	CueVictory         Cue = "victory"
	CueCelebration     Cue = "celebration"
)

// Player plays a cue and returns when the track has ended. It must return
// promptly once ctx is cancelled. A Player that never returns is tolerated:
// the sequencer moves on after its backup timer.
type Player interface {
	Play(ctx context.Context, cue Cue) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, cue Cue) error

func (f PlayerFunc) Play(ctx context.Context, cue Cue) error {
	return f(ctx, cue)
}

// Silent is a muted Player; every cue ends immediately.
type Silent struct{}

func (Silent) Play(context.Context, Cue) error { return nil }

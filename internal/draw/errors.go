package draw

import "errors"

var (
	// ErrInsufficientPool is returned when fewer participants are eligible than
	// the operation needs. The session is left unchanged.
	ErrInsufficientPool = errors.New("insufficient eligible participants")

	// ErrPrizeComplete is returned when a draw is requested for a prize whose
	// winner target has already been met.
	ErrPrizeComplete = errors.New("prize already has all its winners")

	// ErrInvalidConfiguration covers setup data the engine refuses to work with.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownParticipant is returned when an operation names a participant
	// that is not part of the roster or not a committed winner.
	ErrUnknownParticipant = errors.New("unknown participant")
)

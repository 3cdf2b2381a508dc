package controller

// State is the lifecycle of the engine owned by a Controller.
type State int

const (
	// Uninitialized means no engine is held; synthesis is rejected until a
	// Configure succeeds.
	Uninitialized State = iota
	// Initializing means paths are being checked and the engine built.
	Initializing
	// Ready means an engine is held and idle.
	Ready
	// Synthesizing means a request is generating or playing.
	Synthesizing
	// Disposed is terminal.
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Synthesizing:
		return "synthesizing"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Outcome describes how a synthesis request ended.
type Outcome int

const (
	// OutcomePlayed means audio was produced and played to the end.
	OutcomePlayed Outcome = iota
	// OutcomeEmpty means the engine produced no samples.
	OutcomeEmpty
	// OutcomeFailed means the engine or the sink failed; the failure was
	// logged and nothing (or only part of the audio) was played.
	OutcomeFailed
	// OutcomeInterrupted means playback was stopped before it finished.
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlayed:
		return "played"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

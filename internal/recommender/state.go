package recommender

import "log/slog"

// State is the stage a recommendation run has reached.
type State int

// Run stages in order. A run only moves forward.
const (
	StateIdle State = iota
	StateQueryEmbedded
	StateDatasetLoaded
	StateScored
	StateRanked
	StateReported
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueryEmbedded:
		return "query_embedded"
	case StateDatasetLoaded:
		return "dataset_loaded"
	case StateScored:
		return "scored"
	case StateRanked:
		return "ranked"
	case StateReported:
		return "reported"
	default:
		return "unknown"
	}
}

type run struct {
	logger *slog.Logger
	state  State
}

func (r *run) advance(next State, attrs ...any) {
	if next <= r.state {
		return
	}
	args := append([]any{"from", r.state.String(), "to", next.String()}, attrs...)
	r.logger.Debug("state transition", args...)
	r.state = next
}

package agent

import (
	"go.uber.org/zap"

	"github.com/rahulgovind/neo/conversation"
)

// maybePrune trims the transcript once it exceeds the prune threshold.
// With a checkpoint in place, turns it covers are dropped outside the
// retention window. Without one, pruning is deferred until the hard cap
// forces a drop with a logged warning; un-checkpointed history is never
// silently lost.
func (e *Engine) maybePrune(state conversation.State) conversation.State {
	if e.config.PruneThreshold <= 0 || state.Len() <= e.config.PruneThreshold {
		return state
	}

	if _, ok := state.Checkpoint(); ok {
		pruned := state.Pruned(e.config.KeepRecentTurns)
		if dropped := state.Len() - pruned.Len(); dropped > 0 {
			e.logger.Info("pruned checkpointed history",
				zap.Int("dropped_turns", dropped),
				zap.Int("remaining_turns", pruned.Len()))
			e.emitter.Emit(EventPruned, map[string]interface{}{
				"dropped_turns": dropped,
				"forced":        false,
			})
		}
		return pruned
	}

	if e.config.HardCap > 0 && state.Len() > e.config.HardCap {
		dropped := state.Len() - e.config.KeepRecentTurns
		e.logger.Warn("hard cap exceeded with no checkpoint; dropping oldest turns",
			zap.Int("dropped_turns", dropped),
			zap.Int("hard_cap", e.config.HardCap))
		e.emitter.Emit(EventPruned, map[string]interface{}{
			"dropped_turns": dropped,
			"forced":        true,
		})
		return state.DropOldest(e.config.KeepRecentTurns)
	}

	return state
}

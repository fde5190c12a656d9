package agent

import (
	"time"

	"github.com/rahulgovind/neo/llm"
)

// Config holds the engine's tunable parameters.
type Config struct {
	// CheckpointInterval is how many turns accumulate past the last
	// checkpoint before a new one is requested.
	CheckpointInterval int `json:"checkpoint_interval"`

	// KeepRecentTurns is the retention window: pruning never removes
	// the most recent turns inside it.
	KeepRecentTurns int `json:"keep_recent_turns"`

	// PruneThreshold is the turn count that triggers pruning.
	PruneThreshold int `json:"prune_threshold"`

	// HardCap forces a drop of un-checkpointed history, with a logged
	// warning, when no checkpoint exists and the transcript exceeds it.
	HardCap int `json:"hard_cap"`

	// MaxProtocolRetries bounds corrective retries for malformed
	// command grammar in a single Process call.
	MaxProtocolRetries int `json:"max_protocol_retries"`

	// LLMTimeout bounds a single completion call.
	LLMTimeout time.Duration `json:"llm_timeout"`

	// RetryPolicy governs transport-level retries around completions.
	RetryPolicy llm.RetryPolicy `json:"-"`

	// MaxTokens is forwarded to the completion request; 0 means the
	// provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	EnableLoopDetection bool `json:"enable_loop_detection"`
	LoopDetectionWindow int  `json:"loop_detection_window"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CheckpointInterval:  20,
		KeepRecentTurns:     6,
		PruneThreshold:      30,
		HardCap:             120,
		MaxProtocolRetries:  3,
		LLMTimeout:          120 * time.Second,
		RetryPolicy:         llm.DefaultRetryPolicy(),
		EnableLoopDetection: true,
		LoopDetectionWindow: 10,
	}
}

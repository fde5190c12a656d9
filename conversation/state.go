package conversation

import "time"

// Checkpoint is an LLM-generated structured summary that allows turns at or
// before CoversThrough to be safely discarded. At most one checkpoint is
// active; a newer checkpoint replaces the old one outright.
type Checkpoint struct {
	Summary       string    `json:"summary"`
	CoversThrough int64     `json:"covers_through"` // Seq of the last summarized turn
	CreatedAt     time.Time `json:"created_at"`
}

// State is an immutable snapshot of a conversation. The zero value is not
// usable; create states with New.
type State struct {
	instructions string
	turns        []Turn
	checkpoint   *Checkpoint
	nextSeq      int64
}

// New creates an empty conversation state with the given instructions.
func New(instructions string) State {
	return State{instructions: instructions, nextSeq: 1}
}

// Instructions returns the session-level guidance. Fixed per session.
func (s State) Instructions() string { return s.instructions }

// Turns returns a deep copy of the transcript; mutating it cannot affect
// the state.
func (s State) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		t.Segments = copySegments(t.Segments)
		out[i] = t
	}
	return out
}

// Len returns the number of turns.
func (s State) Len() int { return len(s.turns) }

// LastTurn returns the most recent turn, or false if the transcript is empty.
func (s State) LastTurn() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	t := s.turns[len(s.turns)-1]
	t.Segments = copySegments(t.Segments)
	return t, true
}

// Checkpoint returns a copy of the active checkpoint, or false if none.
func (s State) Checkpoint() (Checkpoint, bool) {
	if s.checkpoint == nil {
		return Checkpoint{}, false
	}
	return *s.checkpoint, true
}

// AppendTurns returns a new state with the turns appended in order. Each
// appended turn is assigned the next sequence number.
func (s State) AppendTurns(turns ...Turn) State {
	next := s.clone()
	for _, t := range turns {
		t.Seq = next.nextSeq
		next.nextSeq++
		t.Segments = copySegments(t.Segments)
		next.turns = append(next.turns, t)
	}
	return next
}

// WithInstructions returns a new state with the instructions replaced
// wholesale. Used only when session rules change.
func (s State) WithInstructions(instructions string) State {
	next := s.clone()
	next.instructions = instructions
	return next
}

// WithCheckpoint returns a new state with the checkpoint replaced. The old
// checkpoint, if any, is discarded, never merged.
func (s State) WithCheckpoint(cp Checkpoint) State {
	next := s.clone()
	next.checkpoint = &cp
	return next
}

// Pruned returns a new state that drops turns covered by the active
// checkpoint, except that the most recent keepLastN turns are always
// retained verbatim. Without a checkpoint the state is returned unchanged;
// deciding whether un-checkpointed history may be force-dropped is the
// caller's policy, exercised through DropOldest.
func (s State) Pruned(keepLastN int) State {
	if s.checkpoint == nil || len(s.turns) <= keepLastN {
		return s
	}

	cutoff := len(s.turns) - keepLastN
	if cutoff < 0 {
		cutoff = 0
	}
	kept := make([]Turn, 0, len(s.turns))
	for i, t := range s.turns {
		if i >= cutoff || t.Seq > s.checkpoint.CoversThrough {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(s.turns) {
		return s
	}

	next := s.clone()
	next.turns = kept
	return next
}

// DropOldest returns a new state retaining only the most recent keepLastN
// turns, regardless of checkpoint coverage. It is the forced-drop escape
// hatch for the no-checkpoint hard cap.
func (s State) DropOldest(keepLastN int) State {
	if len(s.turns) <= keepLastN {
		return s
	}
	next := s.clone()
	next.turns = append([]Turn(nil), s.turns[len(s.turns)-keepLastN:]...)
	return next
}

// TurnsSince counts turns with a sequence number greater than seq. With
// seq 0 this is the full transcript length.
func (s State) TurnsSince(seq int64) int {
	count := 0
	for _, t := range s.turns {
		if t.Seq > seq {
			count++
		}
	}
	return count
}

// Settled reports whether the state is ready to show to the user or
// persist: the transcript never ends on an assistant turn whose command
// invocations have not yet been answered.
func (s State) Settled() bool {
	last, ok := s.LastTurn()
	if !ok {
		return true
	}
	return !(last.Role == RoleAssistant && last.HasInvocations())
}

// clone copies the state's turn slice so appends never alias the receiver.
func (s State) clone() State {
	turns := make([]Turn, len(s.turns), len(s.turns)+2)
	copy(turns, s.turns)
	next := s
	next.turns = turns
	return next
}

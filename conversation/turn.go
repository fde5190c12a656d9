// Package conversation holds the immutable conversation state: a transcript
// of role-attributed turns, session instructions, and at most one active
// checkpoint. Every mutation returns a new value; callers never receive a
// mutable reference to another state's internals.
package conversation

import (
	"time"

	"github.com/rahulgovind/neo/protocol"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one role-attributed unit of conversation. Seq is a monotonically
// increasing identifier assigned when the turn is appended to a state; it is
// stable across pruning, unlike a slice index.
type Turn struct {
	Seq       int64              `json:"seq"`
	Role      Role               `json:"role"`
	Segments  []protocol.Segment `json:"segments"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewUserTurn creates a user turn with a single text segment.
func NewUserTurn(content string) Turn {
	return Turn{
		Role:      RoleUser,
		Segments:  []protocol.Segment{protocol.NewText(content)},
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemTurn creates a system turn with a single text segment.
func NewSystemTurn(content string) Turn {
	return Turn{
		Role:      RoleSystem,
		Segments:  []protocol.Segment{protocol.NewText(content)},
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantTurn creates an assistant turn from parsed response segments.
func NewAssistantTurn(segments []protocol.Segment) Turn {
	return Turn{
		Role:      RoleAssistant,
		Segments:  copySegments(segments),
		Timestamp: time.Now().UTC(),
	}
}

// NewResultTurn wraps command results in a single user turn, so the model
// sees all results from one response before producing more text.
func NewResultTurn(results []protocol.Segment) Turn {
	return Turn{
		Role:      RoleUser,
		Segments:  copySegments(results),
		Timestamp: time.Now().UTC(),
	}
}

// Text concatenates the content of the turn's text segments.
func (t Turn) Text() string {
	return protocol.TextContent(t.Segments)
}

// WireText renders all segments in wire form, newline separated.
func (t Turn) WireText() string {
	return protocol.JoinWire(t.Segments)
}

// Invocations returns the turn's command invocation segments in order.
func (t Turn) Invocations() []*protocol.InvocationSegment {
	return protocol.Invocations(t.Segments)
}

// HasInvocations reports whether the turn contains any invocation segment.
func (t Turn) HasInvocations() bool {
	return len(t.Invocations()) > 0
}

// Results returns the turn's command result segments in order.
func (t Turn) Results() []*protocol.ResultSegment {
	var out []*protocol.ResultSegment
	for i := range t.Segments {
		if t.Segments[i].Kind == protocol.SegmentResult {
			out = append(out, t.Segments[i].Result)
		}
	}
	return out
}

// StructuredOutput returns the first structured value among the turn's
// results, or nil.
func (t Turn) StructuredOutput() *protocol.StructuredValue {
	for _, r := range t.Results() {
		if r.Structured != nil {
			return r.Structured
		}
	}
	return nil
}

func copySegments(segments []protocol.Segment) []protocol.Segment {
	out := make([]protocol.Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg.Clone()
	}
	return out
}

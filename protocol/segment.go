package protocol

import (
	"fmt"
	"strings"
)

// SegmentKind discriminates between segment types.
type SegmentKind string

const (
	SegmentText       SegmentKind = "text"
	SegmentInvocation SegmentKind = "invocation"
	SegmentResult     SegmentKind = "result"
	SegmentMalformed  SegmentKind = "malformed"
)

// Segment is the smallest addressable unit of turn content.
type Segment struct {
	Kind       SegmentKind        `json:"kind"`
	Text       *TextSegment       `json:"text,omitempty"`
	Invocation *InvocationSegment `json:"invocation,omitempty"`
	Result     *ResultSegment     `json:"result,omitempty"`
	Malformed  *MalformedSegment  `json:"malformed,omitempty"`
}

// TextSegment is plain assistant or user text.
type TextSegment struct {
	Content string `json:"content"`
}

// InvocationSegment is a parsed command invocation that has not yet been
// executed. RawArgs is the argument portion exactly as written; Stdin is
// non-nil when a ｜ separator was present, even if the stdin was empty.
type InvocationSegment struct {
	Name    string  `json:"name"`
	RawArgs string  `json:"raw_args"`
	Stdin   *string `json:"stdin,omitempty"`
}

// ResultSegment is the outcome of executing an invocation. Immutable once
// attached to a turn.
type ResultSegment struct {
	Name       string           `json:"name"`
	Success    bool             `json:"success"`
	Content    string           `json:"content"`
	Structured *StructuredValue `json:"structured,omitempty"`
}

// StructuredValue carries schema-tagged command output alongside the text
// representation, e.g. the payload of the output command.
type StructuredValue struct {
	Destination string `json:"destination"`
	Type        string `json:"type"`
	Value       string `json:"value"`
}

// MalformedSegment records a grammar violation: the raw text that failed to
// parse and the reason. Never silently dropped.
type MalformedSegment struct {
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Clone returns a segment whose payloads are independent copies, so
// mutating the clone cannot reach the original.
func (s Segment) Clone() Segment {
	out := Segment{Kind: s.Kind}
	if s.Text != nil {
		t := *s.Text
		out.Text = &t
	}
	if s.Invocation != nil {
		inv := *s.Invocation
		if inv.Stdin != nil {
			stdin := *inv.Stdin
			inv.Stdin = &stdin
		}
		out.Invocation = &inv
	}
	if s.Result != nil {
		res := *s.Result
		if res.Structured != nil {
			sv := *res.Structured
			res.Structured = &sv
		}
		out.Result = &res
	}
	if s.Malformed != nil {
		m := *s.Malformed
		out.Malformed = &m
	}
	return out
}

// NewText creates a text segment.
func NewText(content string) Segment {
	return Segment{Kind: SegmentText, Text: &TextSegment{Content: content}}
}

// NewInvocation creates an invocation segment without stdin.
func NewInvocation(name, rawArgs string) Segment {
	return Segment{Kind: SegmentInvocation, Invocation: &InvocationSegment{Name: name, RawArgs: rawArgs}}
}

// NewInvocationWithStdin creates an invocation segment with stdin.
func NewInvocationWithStdin(name, rawArgs, stdin string) Segment {
	return Segment{Kind: SegmentInvocation, Invocation: &InvocationSegment{Name: name, RawArgs: rawArgs, Stdin: &stdin}}
}

// NewResult creates a result segment.
func NewResult(name string, success bool, content string) Segment {
	return Segment{Kind: SegmentResult, Result: &ResultSegment{Name: name, Success: success, Content: content}}
}

// NewStructuredResult creates a successful result segment carrying a
// structured value.
func NewStructuredResult(name, content string, value *StructuredValue) Segment {
	return Segment{Kind: SegmentResult, Result: &ResultSegment{Name: name, Success: true, Content: content, Structured: value}}
}

// NewMalformed creates a malformed-invocation segment.
func NewMalformed(raw, reason string) Segment {
	return Segment{Kind: SegmentMalformed, Malformed: &MalformedSegment{Raw: raw, Reason: reason}}
}

// WireText renders the segment in its on-the-wire form, suitable for
// re-sending to the model. Text and malformed segments reproduce their
// original bytes; invocations and results are re-framed with sentinels.
func (s Segment) WireText() string {
	switch s.Kind {
	case SegmentText:
		if s.Text != nil {
			return s.Text.Content
		}
	case SegmentInvocation:
		if s.Invocation != nil {
			return s.Invocation.WireText()
		}
	case SegmentResult:
		if s.Result != nil {
			return s.Result.WireText()
		}
	case SegmentMalformed:
		if s.Malformed != nil {
			return s.Malformed.Raw
		}
	}
	return ""
}

// WireText reconstructs the invocation's wire form.
func (inv InvocationSegment) WireText() string {
	var sb strings.Builder
	sb.WriteRune(CommandStart)
	sb.WriteString(inv.Name)
	if inv.RawArgs != "" {
		sb.WriteByte(' ')
		sb.WriteString(inv.RawArgs)
	}
	if inv.Stdin != nil {
		sb.WriteRune(StdinSeparator)
		sb.WriteString(*inv.Stdin)
	}
	sb.WriteRune(CommandEnd)
	return sb.String()
}

// Statement returns the invocation without markers or stdin, as the model
// wrote it: name followed by raw arguments.
func (inv InvocationSegment) Statement() string {
	if inv.RawArgs == "" {
		return inv.Name
	}
	return inv.Name + " " + inv.RawArgs
}

// WireText renders the result with its success/error prefix, escaped
// content, and terminating sentinel.
func (r ResultSegment) WireText() string {
	prefix := SuccessPrefix
	if !r.Success {
		prefix = ErrorPrefix
	}
	return fmt.Sprintf("%c%s%c", prefix, Escape(r.Content), CommandEnd)
}

// JoinWire renders a sequence of segments to a single wire string, newline
// separated the way transcript turns are presented to the model.
func JoinWire(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.WireText())
	}
	return strings.Join(parts, "\n")
}

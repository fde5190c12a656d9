package protocol

import (
	"strings"
	"unicode"
)

// Parse splits model output text into an ordered sequence of segments.
//
// The parser is an explicit scanner rather than a regex so that every
// malformed-input case is enumerable: an unterminated invocation (no ■
// before the next ▶ or end of input) and an invocation with an empty
// command name each produce a MalformedSegment carrying the raw text and a
// reason. Text outside command markers is preserved verbatim, so for input
// containing no markers the result is a single text segment equal to the
// input. Parse is a pure function.
func Parse(text string) []Segment {
	runes := []rune(text)
	var segments []Segment
	var textStart int

	flushText := func(end int) {
		if end > textStart {
			segments = append(segments, NewText(string(runes[textStart:end])))
		}
	}

	for i := 0; i < len(runes); {
		if runes[i] != CommandStart {
			i++
			continue
		}

		// Locate the terminating ■. A second ▶ before it means the first
		// invocation was never closed.
		end := -1
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == CommandEnd {
				end = j
				break
			}
			if runes[j] == CommandStart {
				break
			}
		}

		flushText(i)
		if end == -1 {
			// Unterminated: consume up to the next ▶ (or end of input) so a
			// following well-formed invocation still parses.
			stop := len(runes)
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == CommandStart {
					stop = j
					break
				}
			}
			segments = append(segments, NewMalformed(
				string(runes[i:stop]),
				"unterminated command: missing ■ end marker",
			))
			textStart = stop
			i = stop
			continue
		}

		seg := parseInvocation(runes[i : end+1])
		segments = append(segments, seg)
		textStart = end + 1
		i = end + 1
	}
	flushText(len(runes))

	if segments == nil {
		// No markers at all: a single text segment equal to the input,
		// including the empty string.
		return []Segment{NewText(text)}
	}
	return segments
}

// parseInvocation parses one ▶...■ span (markers included) into either an
// invocation or a malformed segment.
func parseInvocation(raw []rune) Segment {
	inner := string(raw[1 : len(raw)-1])

	var stdin *string
	statement := inner
	if idx := strings.IndexRune(inner, StdinSeparator); idx >= 0 {
		s := inner[idx+len(string(StdinSeparator)):]
		stdin = &s
		statement = inner[:idx]
	}

	statement = strings.TrimSpace(statement)
	if statement == "" {
		return NewMalformed(string(raw), "empty command: expected a command name after ▶")
	}

	name := statement
	rawArgs := ""
	if idx := strings.IndexFunc(statement, unicode.IsSpace); idx >= 0 {
		name = statement[:idx]
		rawArgs = strings.TrimSpace(statement[idx+1:])
	}

	inv := InvocationSegment{Name: name, RawArgs: rawArgs, Stdin: stdin}
	return Segment{Kind: SegmentInvocation, Invocation: &inv}
}

// Invocations filters the invocation segments from a parse result.
func Invocations(segments []Segment) []*InvocationSegment {
	var out []*InvocationSegment
	for i := range segments {
		if segments[i].Kind == SegmentInvocation {
			out = append(out, segments[i].Invocation)
		}
	}
	return out
}

// Malformed filters the malformed segments from a parse result.
func Malformed(segments []Segment) []*MalformedSegment {
	var out []*MalformedSegment
	for i := range segments {
		if segments[i].Kind == SegmentMalformed {
			out = append(out, segments[i].Malformed)
		}
	}
	return out
}

// TextContent concatenates the content of all text segments.
func TextContent(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if seg.Kind == SegmentText && seg.Text != nil {
			sb.WriteString(seg.Text.Content)
		}
	}
	return sb.String()
}

package protocol

import (
	"strings"
	"testing"
)

func TestParsePlainTextFidelity(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"multi\nline\ntext with unicode: héllo",
		"✅ and ❌ outside a command are plain text",
		"text with a lone end marker ■ in it",
	}
	for _, input := range inputs {
		segments := Parse(input)
		if len(segments) != 1 {
			t.Fatalf("Parse(%q): expected 1 segment, got %d", input, len(segments))
		}
		if segments[0].Kind != SegmentText {
			t.Fatalf("Parse(%q): expected text segment, got %s", input, segments[0].Kind)
		}
		if got := segments[0].Text.Content; got != input {
			t.Errorf("Parse(%q): content %q does not round-trip", input, got)
		}
	}
}

func TestParseSegmentation(t *testing.T) {
	input := "Let me read that file.\n▶read_file --limit 10 main.go■\nDone."
	segments := Parse(input)

	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %#v", len(segments), segments)
	}
	if segments[0].Kind != SegmentText || segments[0].Text.Content != "Let me read that file.\n" {
		t.Errorf("unexpected leading text: %#v", segments[0])
	}
	if segments[1].Kind != SegmentInvocation {
		t.Fatalf("expected invocation, got %s", segments[1].Kind)
	}
	inv := segments[1].Invocation
	if inv.Name != "read_file" {
		t.Errorf("name = %q, want read_file", inv.Name)
	}
	if inv.RawArgs != "--limit 10 main.go" {
		t.Errorf("raw args = %q", inv.RawArgs)
	}
	if inv.Stdin != nil {
		t.Errorf("expected no stdin, got %q", *inv.Stdin)
	}
	if segments[2].Kind != SegmentText || segments[2].Text.Content != "\nDone." {
		t.Errorf("unexpected trailing text: %#v", segments[2])
	}
}

func TestParseStdin(t *testing.T) {
	input := "▶write_file notes.txt｜line one\nline two■"
	segments := Parse(input)
	if len(segments) != 1 || segments[0].Kind != SegmentInvocation {
		t.Fatalf("unexpected segments: %#v", segments)
	}
	inv := segments[0].Invocation
	if inv.Name != "write_file" || inv.RawArgs != "notes.txt" {
		t.Errorf("statement parsed as %q / %q", inv.Name, inv.RawArgs)
	}
	if inv.Stdin == nil || *inv.Stdin != "line one\nline two" {
		t.Errorf("stdin = %v", inv.Stdin)
	}
}

func TestParseEmptyStdinIsPreserved(t *testing.T) {
	segments := Parse("▶bash｜■")
	inv := segments[0].Invocation
	if inv == nil || inv.Stdin == nil || *inv.Stdin != "" {
		t.Fatalf("empty stdin after ｜ should be preserved, got %#v", segments[0])
	}
}

func TestParseMultipleInvocationsInOrder(t *testing.T) {
	input := "first\n▶file_path_search *.txt■\nthen\n▶read_file a.txt■\nend"
	segments := Parse(input)
	invs := Invocations(segments)
	if len(invs) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(invs))
	}
	if invs[0].Name != "file_path_search" || invs[1].Name != "read_file" {
		t.Errorf("invocations out of document order: %q, %q", invs[0].Name, invs[1].Name)
	}
}

func TestParseUnterminatedInvocation(t *testing.T) {
	input := "before ▶read_file a.txt and no end marker"
	segments := Parse(input)
	mal := Malformed(segments)
	if len(mal) != 1 {
		t.Fatalf("expected 1 malformed segment, got %d: %#v", len(mal), segments)
	}
	if !strings.Contains(mal[0].Reason, "unterminated") {
		t.Errorf("reason = %q", mal[0].Reason)
	}
	if !strings.HasPrefix(mal[0].Raw, "▶read_file") {
		t.Errorf("raw = %q", mal[0].Raw)
	}
}

func TestParseUnterminatedFollowedByWellFormed(t *testing.T) {
	input := "▶broken one ▶read_file a.txt■"
	segments := Parse(input)
	if len(Malformed(segments)) != 1 {
		t.Fatalf("expected 1 malformed segment: %#v", segments)
	}
	invs := Invocations(segments)
	if len(invs) != 1 || invs[0].Name != "read_file" {
		t.Fatalf("well-formed invocation after malformed one was lost: %#v", segments)
	}
}

func TestParseEmptyCommandName(t *testing.T) {
	segments := Parse("▶   ■")
	mal := Malformed(segments)
	if len(mal) != 1 {
		t.Fatalf("expected malformed segment for empty name, got %#v", segments)
	}
	if !strings.Contains(mal[0].Reason, "empty command") {
		t.Errorf("reason = %q", mal[0].Reason)
	}
}

func TestParseDeterministic(t *testing.T) {
	input := "x▶a b■y▶broken"
	first := Parse(input)
	second := Parse(input)
	if len(first) != len(second) {
		t.Fatalf("parse not deterministic: %d vs %d segments", len(first), len(second))
	}
	for i := range first {
		if first[i].WireText() != second[i].WireText() {
			t.Errorf("segment %d differs between parses", i)
		}
	}
}

func TestInvocationWireTextRoundTrip(t *testing.T) {
	input := "▶bash --timeout 5｜echo hi■"
	segments := Parse(input)
	if got := segments[0].WireText(); got != input {
		t.Errorf("wire text %q, want %q", got, input)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	content := "output containing ▶ and ■ and ｜ plus ✅ and ❌ markers"
	escaped := Escape(content)
	if strings.ContainsAny(escaped, string(Sentinels)) {
		t.Fatalf("escaped content still contains sentinels: %q", escaped)
	}
	if got := Unescape(escaped); got != content {
		t.Errorf("unescape(escape(x)) = %q, want %q", got, content)
	}
}

func TestUnescapeLeavesOtherEscapesAlone(t *testing.T) {
	content := `a A stays, a ▶ becomes a sentinel`
	got := Unescape(content)
	if !strings.Contains(got, `A`) {
		t.Errorf("unrelated escape was rewritten: %q", got)
	}
	if !strings.ContainsRune(got, CommandStart) {
		t.Errorf("sentinel escape was not decoded: %q", got)
	}
}

func TestResultWireText(t *testing.T) {
	ok := NewResult("read_file", true, "hello")
	if got := ok.WireText(); got != "✅hello■" {
		t.Errorf("success wire text = %q", got)
	}
	fail := NewResult("read_file", false, "file not found: a.txt")
	if got := fail.WireText(); got != "❌file not found: a.txt■" {
		t.Errorf("error wire text = %q", got)
	}
	// Sentinels inside content are escaped on the wire.
	tricky := NewResult("bash", true, "saw ■ in output")
	if strings.Count(tricky.WireText(), "■") != 1 {
		t.Errorf("content sentinel leaked into framing: %q", tricky.WireText())
	}
}

func TestSegmentCloneIndependence(t *testing.T) {
	stdin := "input"
	orig := Segment{
		Kind:       SegmentInvocation,
		Invocation: &InvocationSegment{Name: "bash", RawArgs: "-t 5", Stdin: &stdin},
	}
	clone := orig.Clone()
	clone.Invocation.Name = "other"
	*clone.Invocation.Stdin = "changed"
	if orig.Invocation.Name != "bash" || *orig.Invocation.Stdin != "input" {
		t.Errorf("clone shares invocation payload: %+v", orig.Invocation)
	}

	res := NewStructuredResult("output", "recorded", &StructuredValue{Destination: "checkpoint", Value: "v"})
	resClone := res.Clone()
	resClone.Result.Structured.Value = "changed"
	if res.Result.Structured.Value != "v" {
		t.Errorf("clone shares structured payload: %+v", res.Result.Structured)
	}
}

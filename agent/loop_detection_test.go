package agent

import (
	"fmt"
	"testing"

	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/protocol"
)

func assistantInvTurn(name, args string) conversation.Turn {
	return conversation.NewAssistantTurn([]protocol.Segment{
		protocol.NewInvocation(name, args),
	})
}

func TestDetectLoopRepeatingSingleCommand(t *testing.T) {
	var turns []conversation.Turn
	for i := 0; i < 6; i++ {
		turns = append(turns, assistantInvTurn("read_file", "same.txt"))
	}
	if !detectLoop(turns, 6) {
		t.Error("identical repeated invocations should be detected")
	}
}

func TestDetectLoopAlternatingPair(t *testing.T) {
	var turns []conversation.Turn
	for i := 0; i < 3; i++ {
		turns = append(turns, assistantInvTurn("read_file", "a.txt"))
		turns = append(turns, assistantInvTurn("read_file", "b.txt"))
	}
	if !detectLoop(turns, 6) {
		t.Error("alternating pair should be detected")
	}
}

func TestDetectLoopDistinctCommands(t *testing.T) {
	var turns []conversation.Turn
	for i := 0; i < 6; i++ {
		turns = append(turns, assistantInvTurn("read_file", fmt.Sprintf("file%d.txt", i)))
	}
	if detectLoop(turns, 6) {
		t.Error("distinct invocations are not a loop")
	}
}

func TestDetectLoopInsufficientHistory(t *testing.T) {
	turns := []conversation.Turn{assistantInvTurn("read_file", "a.txt")}
	if detectLoop(turns, 6) {
		t.Error("short histories never trip detection")
	}
}

func TestInvocationSignatureDistinguishesStdin(t *testing.T) {
	a := "input-a"
	b := "input-b"
	invA := &protocol.InvocationSegment{Name: "bash", Stdin: &a}
	invB := &protocol.InvocationSegment{Name: "bash", Stdin: &b}
	if invocationSignature(invA) == invocationSignature(invB) {
		t.Error("different stdin must produce different signatures")
	}
}

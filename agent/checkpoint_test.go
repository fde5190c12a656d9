package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/llm"
	"github.com/rahulgovind/neo/protocol"
)

// checkpointAwareCompleter answers checkpoint requests differently from
// normal turns.
type checkpointAwareCompleter struct {
	normalText       string
	checkpointText   string
	checkpointErr    error
	checkpointCalls  int
	normalCalls      int
	lastCheckpointIn llm.Request
}

func (c *checkpointAwareCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	if strings.Contains(last.Content, "destination checkpoint") {
		c.checkpointCalls++
		c.lastCheckpointIn = req
		if c.checkpointErr != nil {
			return nil, c.checkpointErr
		}
		return &llm.Response{Text: c.checkpointText}, nil
	}
	c.normalCalls++
	return &llm.Response{Text: c.normalText}, nil
}

func checkpointResponse(summary string) string {
	return fmt.Sprintf("%coutput -d checkpoint%c%s\n%s%c",
		protocol.CommandStart, protocol.StdinSeparator,
		summary, CheckpointTerminalMarker, protocol.CommandEnd)
}

func TestCheckpointCreatedAtInterval(t *testing.T) {
	completer := &checkpointAwareCompleter{
		normalText:     "ok",
		checkpointText: checkpointResponse("## Requests\n- build the thing"),
	}
	cfg := fastConfig()
	cfg.CheckpointInterval = 4
	cfg.PruneThreshold = 1000 // keep pruning out of this test
	e := newTestEngine(t, completer, cfg)
	defer e.Close()

	// Each Process adds 2 turns; the second crosses the interval.
	for i := 0; i < 2; i++ {
		if _, err := e.Process(context.Background(), "go"); err != nil {
			t.Fatal(err)
		}
	}

	if completer.checkpointCalls != 1 {
		t.Fatalf("checkpoint calls = %d, want 1", completer.checkpointCalls)
	}
	cp, ok := e.State().Checkpoint()
	if !ok {
		t.Fatal("no checkpoint recorded")
	}
	if !strings.Contains(cp.Summary, "build the thing") {
		t.Errorf("summary = %q", cp.Summary)
	}
	if strings.Contains(cp.Summary, CheckpointTerminalMarker) {
		t.Error("terminal marker should be stripped from the stored summary")
	}
	last, _ := e.State().LastTurn()
	if cp.CoversThrough != last.Seq {
		t.Errorf("covers_through = %d, want last seq %d", cp.CoversThrough, last.Seq)
	}
}

func TestCheckpointFailureIsNonFatal(t *testing.T) {
	completer := &checkpointAwareCompleter{
		normalText: "ok",
		checkpointErr: &llm.TransportError{
			BaseError:  llm.BaseError{Message: "boom"},
			StatusCode: 500, Retryable: true,
		},
	}
	cfg := fastConfig()
	cfg.CheckpointInterval = 2
	cfg.PruneThreshold = 1000
	e := newTestEngine(t, completer, cfg)
	defer e.Close()

	for i := 0; i < 3; i++ {
		text, err := e.Process(context.Background(), "go")
		if err != nil {
			t.Fatalf("checkpoint failure must not break normal turns: %v", err)
		}
		if text != "ok" {
			t.Errorf("final text = %q", text)
		}
	}

	if _, ok := e.State().Checkpoint(); ok {
		t.Error("failed checkpoint must not be recorded")
	}
	if completer.checkpointCalls < 2 {
		t.Errorf("checkpoint should be retried on later crossings, calls = %d", completer.checkpointCalls)
	}
}

func TestCheckpointMissingMarkerRejected(t *testing.T) {
	completer := &checkpointAwareCompleter{
		normalText: "ok",
		checkpointText: fmt.Sprintf("%coutput -d checkpoint%cno marker here%c",
			protocol.CommandStart, protocol.StdinSeparator, protocol.CommandEnd),
	}
	cfg := fastConfig()
	cfg.CheckpointInterval = 2
	cfg.PruneThreshold = 1000
	e := newTestEngine(t, completer, cfg)
	defer e.Close()

	if _, err := e.Process(context.Background(), "go"); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.State().Checkpoint(); ok {
		t.Error("summary without terminal marker must be rejected")
	}
}

func TestCheckpointPlainTextResponseRejected(t *testing.T) {
	completer := &checkpointAwareCompleter{
		normalText:     "ok",
		checkpointText: "Here is a summary without the output command.",
	}
	cfg := fastConfig()
	cfg.CheckpointInterval = 2
	cfg.PruneThreshold = 1000
	e := newTestEngine(t, completer, cfg)
	defer e.Close()

	if _, err := e.Process(context.Background(), "go"); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.State().Checkpoint(); ok {
		t.Error("summary outside the output command must be rejected")
	}
}

func TestValidateSummary(t *testing.T) {
	summary, err := validateSummary("body\n" + CheckpointTerminalMarker + "\n")
	if err != nil {
		t.Fatal(err)
	}
	if summary != "body" {
		t.Errorf("summary = %q", summary)
	}

	if _, err := validateSummary("no marker"); err == nil {
		t.Error("missing marker should be rejected")
	}
	if _, err := validateSummary(CheckpointTerminalMarker); err == nil {
		t.Error("empty summary should be rejected")
	}
}

func TestTranscriptIncludesCheckpointAsLeadingTurn(t *testing.T) {
	state := conversation.New("instr").
		AppendTurns(conversation.NewUserTurn("hello")).
		WithCheckpoint(conversation.Checkpoint{Summary: "the summary", CoversThrough: 1})

	messages := transcriptMessages(state)
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Role != llm.RoleUser || !strings.Contains(messages[0].Content, "the summary") {
		t.Errorf("leading message should carry the checkpoint: %+v", messages[0])
	}
}

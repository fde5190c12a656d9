package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/llm"
	"github.com/rahulgovind/neo/protocol"
	"github.com/rahulgovind/neo/shell"
)

// CheckpointTerminalMarker must be the final line of a checkpoint
// summary; summaries missing it are rejected. Deliberately sentinel-free
// so it can travel inside a command's stdin section.
const CheckpointTerminalMarker = "=== END CHECKPOINT ==="

// checkpointRequest is the fixed prompt that asks the model to summarize
// the conversation so far.
func checkpointRequest() string {
	return strings.TrimSpace(fmt.Sprintf(`
Summarize the conversation so far so that older turns can be discarded.
Structure the summary as markdown with these sections:

## Requests
Outstanding and completed user requests, as a TODO-style list.

## Plan
The current plan and its remaining steps.

## Knowledge
Facts learned about the project and environment that later turns will
need (file paths, command outputs, decisions made).

Emit the summary with the output command, destination checkpoint, and
make its final line exactly %q:

%coutput -d checkpoint%c<summary>
%s%c

Do not run any other command and do not add text outside the command.`,
		CheckpointTerminalMarker,
		protocol.CommandStart, protocol.StdinSeparator,
		CheckpointTerminalMarker, protocol.CommandEnd))
}

// maybeCheckpoint requests a new checkpoint when enough turns have
// accumulated since the last one. Failure is logged and non-fatal: the
// prior checkpoint stays in place and the next threshold crossing
// retries.
func (e *Engine) maybeCheckpoint(ctx context.Context, state conversation.State) conversation.State {
	if e.config.CheckpointInterval <= 0 {
		return state
	}

	var coveredThrough int64
	if cp, ok := state.Checkpoint(); ok {
		coveredThrough = cp.CoversThrough
	}
	if state.TurnsSince(coveredThrough) < e.config.CheckpointInterval {
		return state
	}

	summary, err := e.requestCheckpoint(ctx, state)
	if err != nil {
		e.logger.Warn("checkpoint request failed", zap.Error(err))
		e.emitter.Emit(EventCheckpointFailed, map[string]interface{}{"error": err.Error()})
		return state
	}

	last, ok := state.LastTurn()
	if !ok {
		return state
	}
	checkpoint := conversation.Checkpoint{
		Summary:       summary,
		CoversThrough: last.Seq,
		CreatedAt:     time.Now().UTC(),
	}
	e.logger.Info("checkpoint created",
		zap.Int64("covers_through", checkpoint.CoversThrough),
		zap.Int("summary_len", len(summary)))
	e.emitter.Emit(EventCheckpointCreated, map[string]interface{}{
		"covers_through": checkpoint.CoversThrough,
	})
	return state.WithCheckpoint(checkpoint)
}

// requestCheckpoint performs the blocking summary exchange: the request
// prompt goes out with the full transcript, and the summary must come
// back through the output command with destination checkpoint, ending in
// the terminal marker.
func (e *Engine) requestCheckpoint(ctx context.Context, state conversation.State) (string, error) {
	transient := []llm.Message{{Role: llm.RoleUser, Content: checkpointRequest()}}
	resp, err := e.complete(ctx, state, transient)
	if err != nil {
		return "", err
	}

	segments := protocol.Parse(resp.Text)
	if malformed := protocol.Malformed(segments); len(malformed) > 0 {
		return "", fmt.Errorf("summary response contained malformed commands: %s", malformed[0].Reason)
	}

	for _, inv := range protocol.Invocations(segments) {
		seg := e.executor.Execute(ctx, *inv)
		if seg.Result == nil || !seg.Result.Success || seg.Result.Structured == nil {
			continue
		}
		if seg.Result.Structured.Destination != shell.DestinationCheckpoint {
			continue
		}
		return validateSummary(seg.Result.Structured.Value)
	}
	return "", fmt.Errorf("summary response carried no checkpoint output")
}

// validateSummary checks the terminal marker and strips it from the
// stored summary.
func validateSummary(raw string) (string, error) {
	trimmed := strings.TrimRight(raw, " \t\n")
	if !strings.HasSuffix(trimmed, CheckpointTerminalMarker) {
		return "", fmt.Errorf("summary is missing the terminal marker %q", CheckpointTerminalMarker)
	}
	summary := strings.TrimRight(strings.TrimSuffix(trimmed, CheckpointTerminalMarker), " \t\n")
	if summary == "" {
		return "", fmt.Errorf("summary is empty")
	}
	return summary, nil
}

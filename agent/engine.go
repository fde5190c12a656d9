// Package agent drives the conversational control loop: send state to
// the model, parse the response for command invocations, execute them in
// order, feed results back, and checkpoint/prune history to keep context
// bounded.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/llm"
	"github.com/rahulgovind/neo/protocol"
	"github.com/rahulgovind/neo/shell"
)

// ErrProtocolRetriesExhausted is returned when the model keeps producing
// malformed command grammar past the configured retry bound.
var ErrProtocolRetriesExhausted = errors.New("assistant response could not be processed")

// Engine is the per-session state machine. A session is strictly
// sequential: Process calls serialize, and within a call there is at
// most one in-flight model request or command execution.
type Engine struct {
	id        string
	completer llm.Completer
	executor  *shell.Executor
	config    Config
	logger    *zap.Logger
	emitter   *EventEmitter

	mu    sync.Mutex
	state conversation.State
	usage llm.Usage
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSessionID sets the session identifier, e.g. when resuming a
// persisted session.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.id = id }
}

// WithState resumes the engine from a previously persisted state. The
// state's own instructions take precedence over the constructor's.
func WithState(state conversation.State) Option {
	return func(e *Engine) { e.state = state }
}

// New creates an engine over a completer and command executor.
func New(completer llm.Completer, executor *shell.Executor, instructions string, opts ...Option) *Engine {
	e := &Engine{
		id:        uuid.New().String(),
		completer: completer,
		executor:  executor,
		config:    DefaultConfig(),
		logger:    zap.NewNop(),
		state:     conversation.New(instructions),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.emitter = NewEventEmitter(e.id, 256)
	return e
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.id }

// State returns the last committed conversation state.
func (e *Engine) State() conversation.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Usage returns cumulative token usage across all completions.
func (e *Engine) Usage() llm.Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

// Events returns the event channel for the host application.
func (e *Engine) Events() <-chan Event {
	return e.emitter.Events()
}

// Close releases the engine's event channel.
func (e *Engine) Close() {
	e.emitter.Close()
}

// Process runs one user turn through the step loop and returns the final
// assistant-visible text. On transport failure or retry exhaustion the
// state is left at its last committed turn boundary; a full turn with
// all its command results commits, or nothing from it does.
func (e *Engine) Process(ctx context.Context, userMessage string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emitter.Emit(EventUserInput, map[string]interface{}{"content": userMessage})
	work := e.state.AppendTurns(conversation.NewUserTurn(userMessage))
	e.state = work

	protocolRetries := 0
	var transient []llm.Message // corrective exchange, never committed

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := e.complete(ctx, work, transient)
		if err != nil {
			e.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			return "", fmt.Errorf("completion failed: %w", err)
		}

		segments := protocol.Parse(resp.Text)
		e.emitter.Emit(EventAssistantResponse, map[string]interface{}{"text": resp.Text})

		if malformed := protocol.Malformed(segments); len(malformed) > 0 {
			protocolRetries++
			e.logger.Warn("malformed command grammar in response",
				zap.Int("attempt", protocolRetries),
				zap.Int("malformed_segments", len(malformed)))
			e.emitter.Emit(EventProtocolRetry, map[string]interface{}{"attempt": protocolRetries})
			if protocolRetries > e.config.MaxProtocolRetries {
				return "", fmt.Errorf("%w: %d malformed responses in a row", ErrProtocolRetriesExhausted, protocolRetries)
			}
			transient = append(transient,
				llm.Message{Role: llm.RoleAssistant, Content: resp.Text},
				llm.Message{Role: llm.RoleUser, Content: correctiveMessage(malformed)},
			)
			continue
		}
		transient = nil
		protocolRetries = 0

		assistantTurn := conversation.NewAssistantTurn(segments)
		invocations := protocol.Invocations(segments)

		if len(invocations) == 0 {
			work = work.AppendTurns(assistantTurn)
			// The model can only mention sentinel characters in their
			// escaped form; decode them for display.
			finalText := protocol.Unescape(protocol.TextContent(segments))
			e.state = work
			e.emitter.Emit(EventTurnComplete, map[string]interface{}{"text": finalText})

			// Checkpointing and pruning run out of band, after the
			// turn completes, never mid-turn.
			work = e.maybeCheckpoint(ctx, work)
			work = e.maybePrune(work)
			e.state = work
			return finalText, nil
		}

		results := e.executeAll(ctx, invocations)
		work = work.AppendTurns(assistantTurn, conversation.NewResultTurn(results))
		e.state = work

		if err := ctx.Err(); err != nil {
			return "", err
		}

		if e.config.EnableLoopDetection && detectLoop(work.Turns(), e.config.LoopDetectionWindow) {
			notice := fmt.Sprintf("The last %d commands follow a repeating pattern. Step back and try a different approach.",
				e.config.LoopDetectionWindow)
			work = work.AppendTurns(conversation.NewSystemTurn(notice))
			e.state = work
			e.emitter.Emit(EventLoopDetected, map[string]interface{}{"message": notice})
		}

		work = e.maybePrune(work)
		e.state = work
	}
}

// complete performs one completion with transport retry and a per-call
// timeout, accumulating usage.
func (e *Engine) complete(ctx context.Context, state conversation.State, transient []llm.Message) (*llm.Response, error) {
	req := llm.Request{
		Instructions: state.Instructions(),
		Messages:     append(transcriptMessages(state), transient...),
		MaxTokens:    e.config.MaxTokens,
	}

	resp, err := llm.Retry(ctx, e.config.RetryPolicy, func(ctx context.Context) (*llm.Response, error) {
		callCtx := ctx
		if e.config.LLMTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.config.LLMTimeout)
			defer cancel()
		}
		return e.completer.Complete(callCtx, req)
	})
	if err != nil {
		return nil, err
	}
	e.usage = e.usage.Add(resp.Usage)
	return resp, nil
}

// executeAll dispatches invocations through the executor's batch path,
// emitting events around each one. A cancelled context stops the batch
// and the remaining invocations are reported as not run.
func (e *Engine) executeAll(ctx context.Context, invocations []*protocol.InvocationSegment) []protocol.Segment {
	invs := make([]protocol.InvocationSegment, len(invocations))
	for i, inv := range invocations {
		invs[i] = *inv
	}
	return e.executor.ExecuteAll(ctx, invs, shell.BatchObserver{
		Before: func(inv protocol.InvocationSegment) {
			e.emitter.Emit(EventCommandStart, map[string]interface{}{"command": inv.Name})
		},
		After: func(inv protocol.InvocationSegment, seg protocol.Segment) {
			e.emitter.Emit(EventCommandEnd, map[string]interface{}{
				"command": inv.Name,
				"success": seg.Result != nil && seg.Result.Success,
			})
		},
	})
}

// correctiveMessage describes grammar errors back to the model.
func correctiveMessage(malformed []*protocol.MalformedSegment) string {
	var sb strings.Builder
	sb.WriteString("Your previous response contained invalid command syntax and was not processed:\n")
	for _, m := range malformed {
		raw := truncateRunes(m.Raw, 200)
		fmt.Fprintf(&sb, "- %s (in: %q)\n", m.Reason, raw)
	}
	fmt.Fprintf(&sb, "Re-send the response with every command written as %cname args%c or %cname args%cinput%c.",
		protocol.CommandStart, protocol.CommandEnd,
		protocol.CommandStart, protocol.StdinSeparator, protocol.CommandEnd)
	return sb.String()
}

// truncateRunes shortens s to at most max bytes without cutting a rune
// in half. The excerpt keeps malformed sentinel runes intact.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

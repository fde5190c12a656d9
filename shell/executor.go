package shell

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/rahulgovind/neo/protocol"
)

// Executor turns parsed invocations into results. Invocations are
// validated before anything runs, executed strictly in order, and their
// output truncated before it re-enters the transcript. A failing command
// produces a failure result; it never halts the batch.
type Executor struct {
	registry   *Registry
	workspace  *Workspace
	logger     *zap.Logger
	timeout    time.Duration
	charLimits map[string]int
	lineLimits map[string]int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithCommandTimeout overrides the per-command execution timeout.
func WithCommandTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithCharLimits overrides per-command character truncation limits.
func WithCharLimits(limits map[string]int) ExecutorOption {
	return func(e *Executor) { e.charLimits = limits }
}

// WithLineLimits overrides per-command line truncation limits.
func WithLineLimits(limits map[string]int) ExecutorOption {
	return func(e *Executor) { e.lineLimits = limits }
}

// NewExecutor creates an Executor over a registry and workspace.
func NewExecutor(registry *Registry, workspace *Workspace, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		registry:  registry,
		workspace: workspace,
		logger:    logger,
		// Outer cap; commands apply their own tighter defaults.
		timeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workspace returns the workspace the executor runs commands in.
func (e *Executor) Workspace() *Workspace { return e.workspace }

// Registry returns the command registry.
func (e *Executor) Registry() *Registry { return e.registry }

// Validate checks an invocation without executing it: the command must
// exist, its arguments must parse against the spec, and its stdin
// requirements must hold. The returned error is the text echoed back to
// the model on corrective retries.
func (e *Executor) Validate(inv protocol.InvocationSegment) error {
	cmd := e.registry.Get(inv.Name)
	if cmd == nil {
		return fmt.Errorf("unknown command %q; available commands: %v", inv.Name, e.registry.Names())
	}
	spec := cmd.Spec()

	if spec.RequiresStdin && (inv.Stdin == nil || *inv.Stdin == "") {
		return fmt.Errorf("%s: requires input after the %c separator", spec.Name, protocol.StdinSeparator)
	}
	if !spec.RequiresStdin && !spec.AcceptsStdin && inv.Stdin != nil {
		return fmt.Errorf("%s: does not accept input after the %c separator", spec.Name, protocol.StdinSeparator)
	}

	args, err := ParseArgs(spec, inv.RawArgs)
	if err != nil {
		return err
	}

	if v, ok := cmd.(Validator); ok {
		if err := v.Validate(e.workspace, args, inv.Stdin); err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
	}
	return nil
}

// Execute runs one invocation and returns its result segment. Command
// errors and panics surface as failure results.
func (e *Executor) Execute(ctx context.Context, inv protocol.InvocationSegment) protocol.Segment {
	if err := e.Validate(inv); err != nil {
		return protocol.NewResult(inv.Name, false, err.Error())
	}

	cmd := e.registry.Get(inv.Name)
	args, err := ParseArgs(cmd.Spec(), inv.RawArgs)
	if err != nil {
		return protocol.NewResult(inv.Name, false, err.Error())
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.run(ctx, cmd, args, inv.Stdin)
	e.logger.Debug("command executed",
		zap.String("command", inv.Name),
		zap.Bool("success", err == nil),
		zap.Duration("duration", time.Since(start)))

	if err != nil {
		return protocol.NewResult(inv.Name, false, err.Error())
	}

	content := TruncateCommandOutput(result.Content, inv.Name, e.charLimits, e.lineLimits)
	if result.Structured != nil {
		return protocol.NewStructuredResult(inv.Name, content, result.Structured)
	}
	return protocol.NewResult(inv.Name, true, content)
}

// run invokes the command with panic recovery.
func (e *Executor) run(ctx context.Context, cmd Command, args Args, stdin *string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command panicked",
				zap.String("command", cmd.Spec().Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			result = nil
			err = fmt.Errorf("%s: internal error: %v", cmd.Spec().Name, r)
		}
	}()
	result, err = cmd.Run(ctx, e.workspace, args, stdin)
	if err == nil && result == nil {
		err = fmt.Errorf("%s: command returned no result", cmd.Spec().Name)
	}
	return result, err
}

// BatchObserver receives callbacks around each invocation in a batch.
// Either field may be nil. After fires for every produced result,
// including the not-run results of a cancelled batch.
type BatchObserver struct {
	Before func(inv protocol.InvocationSegment)
	After  func(inv protocol.InvocationSegment, result protocol.Segment)
}

// ExecuteAll runs invocations strictly in order and returns one result
// per invocation. Execution continues past failures; a cancelled context
// stops the batch, with remaining invocations reported as not run.
func (e *Executor) ExecuteAll(ctx context.Context, invs []protocol.InvocationSegment, observers ...BatchObserver) []protocol.Segment {
	results := make([]protocol.Segment, 0, len(invs))
	for i, inv := range invs {
		if err := ctx.Err(); err != nil {
			for _, skipped := range invs[i:] {
				seg := protocol.NewResult(skipped.Name, false, "not run: execution cancelled")
				results = append(results, seg)
				for _, obs := range observers {
					if obs.After != nil {
						obs.After(skipped, seg)
					}
				}
			}
			break
		}
		for _, obs := range observers {
			if obs.Before != nil {
				obs.Before(inv)
			}
		}
		seg := e.Execute(ctx, inv)
		results = append(results, seg)
		for _, obs := range observers {
			if obs.After != nil {
				obs.After(inv, seg)
			}
		}
	}
	return results
}

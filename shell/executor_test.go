package shell

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahulgovind/neo/protocol"
)

// recordingCommand records the order it was invoked in.
type recordingCommand struct {
	name string
	log  *[]string
	fail bool
}

func (c recordingCommand) Spec() CommandSpec {
	return CommandSpec{
		Name:        c.name,
		Description: "test command",
		Parameters:  []Parameter{{Name: "arg", Positional: true}},
	}
}

func (c recordingCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	arg, _ := args.String("arg")
	*c.log = append(*c.log, c.name+":"+arg)
	if c.fail {
		return nil, assert.AnError
	}
	return &Result{Content: "ran " + arg}, nil
}

// panickyCommand panics on execution.
type panickyCommand struct{}

func (panickyCommand) Spec() CommandSpec {
	return CommandSpec{Name: "boom", Description: "panics"}
}

func (panickyCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	panic("kaboom")
}

// cancellingCommand cancels the batch context from inside its own run.
type cancellingCommand struct {
	name   string
	cancel context.CancelFunc
}

func (c cancellingCommand) Spec() CommandSpec {
	return CommandSpec{Name: c.name, Description: "cancels the batch"}
}

func (c cancellingCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	c.cancel()
	return &Result{Content: "cancelled"}, nil
}

func testExecutor(t *testing.T, cmds ...Command) *Executor {
	t.Helper()
	reg := NewRegistry()
	for _, c := range cmds {
		reg.Register(c)
	}
	return NewExecutor(reg, testWorkspace(t), zap.NewNop())
}

func TestValidateUnknownCommand(t *testing.T) {
	e := testExecutor(t)
	err := e.Validate(protocol.InvocationSegment{Name: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestValidateStdinRequirements(t *testing.T) {
	e := testExecutor(t)
	RegisterBuiltins(e.Registry())

	// write_file requires stdin.
	err := e.Validate(protocol.InvocationSegment{Name: "write_file", RawArgs: "x.txt"})
	assert.Error(t, err)

	// read_file rejects stdin.
	stdin := "data"
	err = e.Validate(protocol.InvocationSegment{Name: "read_file", RawArgs: "x.txt", Stdin: &stdin})
	assert.Error(t, err)
}

func TestValidateBadArgs(t *testing.T) {
	var log []string
	e := testExecutor(t, recordingCommand{name: "rec", log: &log})

	err := e.Validate(protocol.InvocationSegment{Name: "rec", RawArgs: "a --bogus"})
	assert.Error(t, err)
	assert.Empty(t, log, "validation must not execute the command")
}

func TestExecuteSuccess(t *testing.T) {
	var log []string
	e := testExecutor(t, recordingCommand{name: "rec", log: &log})

	seg := e.Execute(context.Background(), protocol.InvocationSegment{Name: "rec", RawArgs: "one"})
	require.Equal(t, protocol.SegmentResult, seg.Kind)
	assert.True(t, seg.Result.Success)
	assert.Equal(t, "ran one", seg.Result.Content)
}

func TestExecuteValidationFailureIsResult(t *testing.T) {
	e := testExecutor(t)
	seg := e.Execute(context.Background(), protocol.InvocationSegment{Name: "ghost"})
	require.Equal(t, protocol.SegmentResult, seg.Kind)
	assert.False(t, seg.Result.Success)
}

func TestExecutePanicBecomesFailure(t *testing.T) {
	e := testExecutor(t, panickyCommand{})
	seg := e.Execute(context.Background(), protocol.InvocationSegment{Name: "boom"})
	require.Equal(t, protocol.SegmentResult, seg.Kind)
	assert.False(t, seg.Result.Success)
	assert.Contains(t, seg.Result.Content, "internal error")
}

func TestExecuteAllSequentialAndContinuesPastFailure(t *testing.T) {
	var log []string
	e := testExecutor(t,
		recordingCommand{name: "a", log: &log},
		recordingCommand{name: "b", log: &log, fail: true},
		recordingCommand{name: "c", log: &log},
	)

	results := e.ExecuteAll(context.Background(), []protocol.InvocationSegment{
		{Name: "a", RawArgs: "1"},
		{Name: "b", RawArgs: "2"},
		{Name: "c", RawArgs: "3"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, log)
	assert.True(t, results[0].Result.Success)
	assert.False(t, results[1].Result.Success)
	assert.True(t, results[2].Result.Success)
}

func TestExecuteAllObserverSeesEveryResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log []string
	e := testExecutor(t,
		recordingCommand{name: "a", log: &log},
		cancellingCommand{name: "stop", cancel: cancel},
	)

	var before, after []string
	obs := BatchObserver{
		Before: func(inv protocol.InvocationSegment) { before = append(before, inv.Name) },
		After: func(inv protocol.InvocationSegment, result protocol.Segment) {
			after = append(after, inv.Name)
		},
	}

	results := e.ExecuteAll(ctx, []protocol.InvocationSegment{
		{Name: "a", RawArgs: "1"},
		{Name: "stop"},
		{Name: "a", RawArgs: "2"},
	}, obs)

	require.Len(t, results, 3)
	// The command after the cancellation is never dispatched but still
	// gets a result, and the observer sees it.
	assert.Equal(t, []string{"a:1"}, log)
	assert.False(t, results[2].Result.Success)
	assert.Contains(t, results[2].Result.Content, "not run")
	assert.Equal(t, []string{"a", "stop"}, before)
	assert.Equal(t, []string{"a", "stop", "a"}, after)
}

func TestExecuteAllCancelledContext(t *testing.T) {
	var log []string
	e := testExecutor(t, recordingCommand{name: "a", log: &log})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := e.ExecuteAll(ctx, []protocol.InvocationSegment{{Name: "a"}, {Name: "a"}})
	require.Len(t, results, 2)
	assert.Empty(t, log)
	for _, r := range results {
		assert.False(t, r.Result.Success)
		assert.Contains(t, r.Result.Content, "not run")
	}
}

func TestExecuteTruncatesOutput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(bigOutputCommand{})
	e := NewExecutor(reg, testWorkspace(t), zap.NewNop(), WithCharLimits(map[string]int{"big": 100}))

	seg := e.Execute(context.Background(), protocol.InvocationSegment{Name: "big"})
	require.True(t, seg.Result.Success)
	assert.Less(t, len(seg.Result.Content), 5000)
	assert.Contains(t, seg.Result.Content, "truncated")
}

type bigOutputCommand struct{}

func (bigOutputCommand) Spec() CommandSpec {
	return CommandSpec{Name: "big", Description: "emits a lot"}
}

func (bigOutputCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	return &Result{Content: strings.Repeat("x", 50000)}, nil
}

func TestExecuteStructuredOutput(t *testing.T) {
	e := testExecutor(t)
	RegisterBuiltins(e.Registry())

	stdin := "42"
	seg := e.Execute(context.Background(), protocol.InvocationSegment{Name: "output", RawArgs: "-t int -d checkpoint", Stdin: &stdin})
	require.True(t, seg.Result.Success)
	require.NotNil(t, seg.Result.Structured)
	assert.Equal(t, DestinationCheckpoint, seg.Result.Structured.Destination)
	assert.Equal(t, "int", seg.Result.Structured.Type)
	assert.Equal(t, "42", seg.Result.Structured.Value)
}

func TestOutputRejectsBadInt(t *testing.T) {
	e := testExecutor(t)
	RegisterBuiltins(e.Registry())

	stdin := "not a number"
	err := e.Validate(protocol.InvocationSegment{Name: "output", RawArgs: "-t int", Stdin: &stdin})
	assert.Error(t, err)
}

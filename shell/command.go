package shell

import (
	"context"

	"github.com/rahulgovind/neo/protocol"
)

// Result is what a command produces on success: the text that re-enters
// the transcript and, optionally, a structured value for out-of-band
// consumers.
type Result struct {
	Content    string
	Structured *protocol.StructuredValue
}

// Command is a single executable command. Run receives parsed arguments
// and the stdin section when present; a returned error becomes a failure
// result rather than halting the batch.
type Command interface {
	Spec() CommandSpec
	Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error)
}

// Validator is an optional extension for commands with checks beyond
// what the spec's parameter declarations express. Validation failures
// are reported before any command in the batch executes.
type Validator interface {
	Validate(ws *Workspace, args Args, stdin *string) error
}

package shell

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MaxBashTimeout caps the per-invocation timeout override.
const MaxBashTimeout = 10 * time.Minute

// bashCommand executes the stdin section as a shell command in the
// workspace.
type bashCommand struct {
	defaultTimeout time.Duration
}

func (bashCommand) Spec() CommandSpec {
	return CommandSpec{
		Name: "bash",
		Description: strings.TrimSpace(`
Execute a shell command.

The command is everything after the separator and runs in the workspace
directory. Prefer the dedicated commands (read_file, write_file,
file_text_search, file_path_search) when one fits.`),
		Parameters: []Parameter{
			{Name: "timeout", Description: "Timeout in seconds. Default: 60, maximum: 600.", Short: "t", Long: "timeout"},
		},
		RequiresStdin: true,
		Examples: strings.TrimSpace(`
▶bash｜ls -la■
▶bash -t 300｜go test ./...■`),
	}
}

func (c bashCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	command := ""
	if stdin != nil {
		command = strings.TrimSpace(*stdin)
	}
	if command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	timeout := c.defaultTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	seconds, ok, err := args.Int("timeout")
	if err != nil {
		return nil, err
	}
	if ok {
		if seconds <= 0 {
			return nil, fmt.Errorf("timeout must be positive, got %d", seconds)
		}
		timeout = time.Duration(seconds) * time.Second
		if timeout > MaxBashTimeout {
			timeout = MaxBashTimeout
		}
	}

	result, err := ws.Exec(ctx, command, timeout)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(result.Output())
	if result.TimedOut {
		fmt.Fprintf(&sb, "\n\n[ERROR: Command timed out after %s. Partial output is shown above. "+
			"Retry with a longer -t timeout if needed.]", timeout)
		return nil, fmt.Errorf("%s", sb.String())
	}
	if result.ExitCode != 0 {
		fmt.Fprintf(&sb, "\n\n[Exit code: %d]", result.ExitCode)
		return nil, fmt.Errorf("%s", sb.String())
	}
	return &Result{Content: sb.String()}, nil
}

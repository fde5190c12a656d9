package shell

import (
	"context"
	"fmt"
	"strings"
)

// readFileCommand reads a file as a line range with optional numbering.
type readFileCommand struct{}

func (readFileCommand) Spec() CommandSpec {
	return CommandSpec{
		Name: "read_file",
		Description: strings.TrimSpace(`
Read a file from the workspace.

Output is line-numbered by default. Line selection is 1-indexed and
inclusive; negative values for -f and -u count from the end of the file.
At most 200 lines are shown unless -l overrides the limit (-l -1 for
unlimited).`),
		Parameters: []Parameter{
			{Name: "path", Description: "Path to the file to read.", Required: true, Positional: true},
			{Name: "no_line_numbers", Description: "Exclude line numbers from the output.", Bool: true, Long: "no-line-numbers"},
			{Name: "from", Description: "Start reading from this line number. Negative counts from the end.", Short: "f", Long: "from"},
			{Name: "until", Description: "Read until this line number, inclusive. Negative counts from the end.", Short: "u", Long: "until"},
			{Name: "limit", Description: "Maximum number of lines to show. Default: 200. Use -1 for unlimited.", Short: "l", Long: "limit"},
		},
		Examples: strings.TrimSpace(`
▶read_file main.go■
▶read_file -f 100 -u 160 internal/server.go■
▶read_file --no-line-numbers -l -1 notes.txt■`),
	}
}

func (readFileCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	path, _ := args.String("path")

	from, err := args.IntOr("from", 0)
	if err != nil {
		return nil, err
	}
	until, err := args.IntOr("until", 0)
	if err != nil {
		return nil, err
	}
	limit, err := args.IntOr("limit", 0)
	if err != nil {
		return nil, err
	}

	content, err := ws.ReadFile(path, ReadOptions{
		From:        from,
		Until:       until,
		Limit:       limit,
		LineNumbers: !args.Bool("no_line_numbers"),
	})
	if err != nil {
		return nil, err
	}
	if content == "" {
		return &Result{Content: fmt.Sprintf("%s: no lines in the selected range", path)}, nil
	}
	return &Result{Content: content}, nil
}

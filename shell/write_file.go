package shell

import (
	"context"
	"fmt"
	"strings"
)

// writeFileCommand creates or overwrites a file with the stdin section.
type writeFileCommand struct{}

func (writeFileCommand) Spec() CommandSpec {
	return CommandSpec{
		Name: "write_file",
		Description: strings.TrimSpace(`
Create or overwrite a file with the given content.

The file content is everything after the separator, written verbatim.
Parent directories are created as needed.`),
		Parameters: []Parameter{
			{Name: "path", Description: "Path to the file to create or overwrite.", Required: true, Positional: true},
		},
		RequiresStdin: true,
		Examples: strings.TrimSpace(`
▶write_file hello.txt｜Hello, world!■
✅Wrote 13 bytes to hello.txt■`),
	}
}

func (writeFileCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	path, _ := args.String("path")
	content := ""
	if stdin != nil {
		content = *stdin
	}
	if err := ws.WriteFile(path, content); err != nil {
		return nil, err
	}
	return &Result{Content: fmt.Sprintf("Wrote %d bytes to %s", len(content), path)}, nil
}

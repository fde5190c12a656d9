package shell

import (
	"context"
	"fmt"
	"strings"
)

// filePathSearchCommand finds files and directories by name pattern.
type filePathSearchCommand struct{}

func (filePathSearchCommand) Spec() CommandSpec {
	return CommandSpec{
		Name: "file_path_search",
		Description: strings.TrimSpace(`
Find files and directories under a path.

Patterns use glob syntax with ** for recursive matching. A bare pattern
like *.go matches file names at any depth. Hidden directories are
skipped.`),
		Parameters: []Parameter{
			{Name: "path", Description: "Path to search in, relative to the workspace.", Required: true, Positional: true},
			{Name: "file_pattern", Description: "Glob pattern to match. May be repeated; a path matches if any pattern does.", Long: "file-pattern", Repeatable: true},
			{Name: "type", Description: "Restrict results to files (f) or directories (d).", Long: "type"},
			{Name: "max_results", Description: "Maximum number of paths to return. Default: 1000.", Long: "max-results"},
		},
		Examples: strings.TrimSpace(`
▶file_path_search . --file-pattern "*.go"■
▶file_path_search internal --type d■
▶file_path_search . --file-pattern "cmd/**/*.go" --file-pattern "*.md"■`),
	}
}

func (filePathSearchCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	path, _ := args.String("path")
	typ := args.StringOr("type", "")
	if typ != "" && typ != "f" && typ != "d" {
		return nil, fmt.Errorf("--type must be f or d, got %q", typ)
	}
	maxResults, err := args.IntOr("max_results", 0)
	if err != nil {
		return nil, err
	}

	matches, err := ws.FindPaths(path, FindOptions{
		Patterns:   args.Strings("file_pattern"),
		Type:       typ,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &Result{Content: "No paths matched."}, nil
	}
	return &Result{Content: strings.Join(matches, "\n")}, nil
}

// fileTextSearchCommand searches file contents with a regular expression.
type fileTextSearchCommand struct{}

func (fileTextSearchCommand) Spec() CommandSpec {
	return CommandSpec{
		Name: "file_text_search",
		Description: strings.TrimSpace(`
Search file contents for a regular expression.

Matches are reported as path:line:text. Binary files and hidden
directories are skipped.`),
		Parameters: []Parameter{
			{Name: "pattern", Description: "Regular expression to search for.", Required: true, Positional: true},
			{Name: "path", Description: "Path to search in, relative to the workspace.", Required: true, Positional: true},
			{Name: "file_pattern", Description: "Glob pattern restricting which files are searched. May be repeated.", Long: "file-pattern", Repeatable: true},
			{Name: "ignore_case", Description: "Case-insensitive matching.", Bool: true, Long: "ignore-case"},
			{Name: "num_context_lines", Description: "Lines of context to show around each match. Default: 0.", Long: "num-context-lines", Default: "0"},
			{Name: "max_results", Description: "Maximum number of matches. Default: 500.", Long: "max-results"},
		},
		Examples: strings.TrimSpace(`
▶file_text_search "func main" . --file-pattern "*.go"■
▶file_text_search --ignore-case "todo" src --num-context-lines 2■`),
	}
}

func (fileTextSearchCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	pattern, _ := args.String("pattern")
	path, _ := args.String("path")

	contextLines, err := args.IntOr("num_context_lines", 0)
	if err != nil {
		return nil, err
	}
	maxResults, err := args.IntOr("max_results", 0)
	if err != nil {
		return nil, err
	}

	matches, err := ws.Grep(ctx, pattern, path, GrepOptions{
		FilePatterns: args.Strings("file_pattern"),
		IgnoreCase:   args.Bool("ignore_case"),
		ContextLines: contextLines,
		MaxResults:   maxResults,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &Result{Content: "No matches."}, nil
	}

	var sb strings.Builder
	for i, m := range matches {
		if len(m.Context) > 0 {
			if i > 0 {
				sb.WriteString("--\n")
			}
			for _, line := range m.Context {
				fmt.Fprintf(&sb, "%s:%s\n", m.Path, line)
			}
		} else {
			fmt.Fprintf(&sb, "%s:%d:%s\n", m.Path, m.Line, m.Text)
		}
	}
	return &Result{Content: strings.TrimRight(sb.String(), "\n")}, nil
}

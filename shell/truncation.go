package shell

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how oversized output is cut.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Default character limits per command.
var DefaultCharLimits = map[string]int{
	"read_file":        50000,
	"bash":             30000,
	"file_text_search": 20000,
	"file_path_search": 20000,
	"write_file":       1000,
	"output":           20000,
}

// Default truncation modes per command.
var DefaultTruncationModes = map[string]TruncationMode{
	"read_file":        TruncateHeadTail,
	"bash":             TruncateHeadTail,
	"file_text_search": TruncateTail,
	"file_path_search": TruncateTail,
	"write_file":       TruncateTail,
	"output":           TruncateHeadTail,
}

// Default line limits per command (applied after character truncation).
var DefaultLineLimits = map[string]int{
	"bash":             256,
	"file_text_search": 200,
	"file_path_search": 500,
}

// TruncateChars applies character-based truncation to output.
func TruncateChars(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Output was truncated. First %d characters were removed. "+
			"Re-run with more targeted parameters if you need them.]\n\n", removed) +
			output[len(output)-maxChars:]
	default: // head_tail
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Output was truncated. %d characters were removed from the middle. "+
				"Re-run with more targeted parameters if you need them.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateCommandOutput applies the full truncation pipeline for a
// command: character-based first (handles pathological cases), then
// line-based for readability. Overrides take precedence over defaults.
func TruncateCommandOutput(output, name string, charLimits, lineLimits map[string]int) string {
	maxChars, ok := charLimits[name]
	if !ok {
		maxChars, ok = DefaultCharLimits[name]
		if !ok {
			maxChars = 30000
		}
	}

	mode, ok := DefaultTruncationModes[name]
	if !ok {
		mode = TruncateHeadTail
	}

	result := TruncateChars(output, maxChars, mode)

	maxLines := 0
	if lineLimits != nil {
		if ml, ok := lineLimits[name]; ok {
			maxLines = ml
		}
	}
	if maxLines == 0 {
		if ml, ok := DefaultLineLimits[name]; ok {
			maxLines = ml
		}
	}
	if maxLines > 0 {
		result = TruncateLines(result, maxLines)
	}

	return result
}

package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahulgovind/neo/protocol"
	"github.com/rahulgovind/neo/shell"
)

// RulesFileName is the optional per-workspace rules file appended to the
// session instructions when present.
const RulesFileName = ".neorules"

// commandFormatInstructions explains the invocation grammar to the model.
func commandFormatInstructions() string {
	return strings.TrimSpace(fmt.Sprintf(`
# Command format

To run a command, write %[1]cname args%[3]c on its own. Input can be
passed after a %[2]c separator: %[1]cname args%[2]cinput%[3]c. Arguments
follow shell quoting rules. You may run several commands in one response;
they execute in the order written, and all of their results come back
together in the next message.

Results are framed as %[4]ccontent%[3]c on success and %[5]ccontent%[3]c
on failure. A failed command is not fatal: read the error and correct
your invocation.

Never write the markers %[1]c, %[2]c, %[3]c, %[4]c, or %[5]c in normal
prose; they are reserved for command framing.`,
		protocol.CommandStart, protocol.StdinSeparator, protocol.CommandEnd,
		protocol.SuccessPrefix, protocol.ErrorPrefix))
}

// BuildInstructions assembles the session instructions: caller-provided
// base guidance, the command grammar, every registered command's manual,
// and workspace rules when a rules file exists.
func BuildInstructions(base string, registry *shell.Registry, workspaceRoot string) string {
	sections := []string{strings.TrimSpace(base)}

	sections = append(sections, commandFormatInstructions())

	if manuals := registry.Manuals(); manuals != "" {
		sections = append(sections, "# Available commands\n\n"+manuals)
	}

	if workspaceRoot != "" {
		if data, err := os.ReadFile(filepath.Join(workspaceRoot, RulesFileName)); err == nil {
			rules := strings.TrimSpace(string(data))
			if rules != "" {
				sections = append(sections, "# Workspace rules\n\n"+rules)
			}
		}
	}

	var nonEmpty []string
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

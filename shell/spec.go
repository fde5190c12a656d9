// Package shell maps parsed command invocations onto executable commands.
//
// Commands are declared with a CommandSpec describing their CLI-style
// surface (positionals, flags, stdin), parsed with an argv-style parser,
// validated before execution, and run against a Workspace. Output flows
// back as result segments after truncation.
package shell

import (
	"fmt"
	"strings"

	"github.com/rahulgovind/neo/protocol"
)

// Parameter describes a single command parameter. A parameter is either
// positional or a flag; boolean flags take no value.
type Parameter struct {
	Name        string
	Description string
	Required    bool
	Positional  bool
	Bool        bool
	Repeatable  bool
	Short       string // single character, rendered as -x
	Long        string // word, rendered as --word
	Default     string
}

// flagLabel renders the flag spelling for manuals and error messages.
func (p Parameter) flagLabel() string {
	switch {
	case p.Short != "" && p.Long != "":
		return "-" + p.Short + ", --" + p.Long
	case p.Short != "":
		return "-" + p.Short
	default:
		return "--" + p.Long
	}
}

// CommandSpec declares a command's name, parameters, and documentation.
type CommandSpec struct {
	Name        string
	Description string
	Parameters  []Parameter
	Examples    string

	// RequiresStdin means the invocation must carry a ｜stdin section;
	// AcceptsStdin means it may. A command with neither rejects stdin.
	RequiresStdin bool
	AcceptsStdin  bool
}

func (s CommandSpec) positionals() []Parameter {
	var out []Parameter
	for _, p := range s.Parameters {
		if p.Positional {
			out = append(out, p)
		}
	}
	return out
}

func (s CommandSpec) flags() []Parameter {
	var out []Parameter
	for _, p := range s.Parameters {
		if !p.Positional {
			out = append(out, p)
		}
	}
	return out
}

// Manual renders the command documentation in a flat man-page style. The
// synopsis shows the invocation exactly as the model must write it,
// including start and end markers.
func (s CommandSpec) Manual() string {
	var lines []string

	shortDesc := strings.SplitN(strings.TrimSpace(s.Description), "\n", 2)[0]
	lines = append(lines, fmt.Sprintf("NAME: %s - %s", s.Name, shortDesc))

	var synopsis strings.Builder
	synopsis.WriteRune(protocol.CommandStart)
	synopsis.WriteString(s.Name)
	if len(s.flags()) > 0 {
		synopsis.WriteString(" [OPTION]...")
	}
	for _, p := range s.positionals() {
		name := strings.ToUpper(p.Name)
		if !p.Required {
			name = "[" + name + "]"
		}
		synopsis.WriteString(" " + name)
	}
	if s.RequiresStdin || s.AcceptsStdin {
		synopsis.WriteRune(protocol.StdinSeparator)
		synopsis.WriteString("STDIN")
	}
	synopsis.WriteRune(protocol.CommandEnd)
	lines = append(lines, "SYNOPSIS: "+synopsis.String())

	lines = append(lines, "DESCRIPTION:")
	for _, dl := range strings.Split(strings.TrimSpace(s.Description), "\n") {
		lines = append(lines, "    "+dl)
	}

	if flags := s.flags(); len(flags) > 0 {
		lines = append(lines, "OPTIONS:")
		for _, p := range flags {
			desc := strings.Join(strings.Fields(p.Description), " ")
			lines = append(lines, fmt.Sprintf("    %s: %s", p.flagLabel(), desc))
		}
	}

	if s.Examples != "" {
		lines = append(lines, "EXAMPLES:")
		for _, el := range strings.Split(strings.TrimSpace(s.Examples), "\n") {
			lines = append(lines, "    "+el)
		}
	}

	return strings.Join(lines, "\n")
}

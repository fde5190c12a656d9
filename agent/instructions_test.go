package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rahulgovind/neo/shell"
)

func TestBuildInstructions(t *testing.T) {
	reg := shell.NewRegistry()
	shell.RegisterBuiltins(reg)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, RulesFileName), []byte("Always answer in haiku.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	instr := BuildInstructions("You are a coding assistant.", reg, dir)

	for _, want := range []string{
		"You are a coding assistant.",
		"# Command format",
		"NAME: read_file",
		"NAME: output",
		"# Workspace rules",
		"Always answer in haiku.",
	} {
		if !strings.Contains(instr, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestBuildInstructionsWithoutRulesFile(t *testing.T) {
	reg := shell.NewRegistry()
	instr := BuildInstructions("base", reg, t.TempDir())
	if strings.Contains(instr, "# Workspace rules") {
		t.Error("rules section should be absent without a rules file")
	}
	if !strings.Contains(instr, "base") {
		t.Error("base instructions missing")
	}
}

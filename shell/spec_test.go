package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualRendersSections(t *testing.T) {
	spec := CommandSpec{
		Name:        "demo",
		Description: "Does demo things.\nSecond line of detail.",
		Parameters: []Parameter{
			{Name: "path", Positional: true, Required: true, Description: "Target path."},
			{Name: "count", Short: "c", Long: "count", Description: "How many."},
		},
		Examples:     "▶demo x -c 3■",
		AcceptsStdin: true,
	}

	m := spec.Manual()
	assert.Contains(t, m, "NAME: demo - Does demo things.")
	assert.Contains(t, m, "SYNOPSIS: ▶demo [OPTION]... PATH｜STDIN■")
	assert.Contains(t, m, "-c, --count: How many.")
	assert.Contains(t, m, "EXAMPLES:")
	assert.Contains(t, m, "Second line of detail.")
}

func TestManualOptionalPositionalBracketed(t *testing.T) {
	spec := CommandSpec{
		Name:        "demo",
		Description: "d",
		Parameters:  []Parameter{{Name: "path", Positional: true}},
	}
	assert.Contains(t, spec.Manual(), "[PATH]")
}

func TestRegistryManualsSorted(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	manuals := reg.Manuals()
	bash := strings.Index(manuals, "NAME: bash")
	write := strings.Index(manuals, "NAME: write_file")
	assert.True(t, bash >= 0 && write >= 0 && bash < write)
	assert.Equal(t, []string{"bash", "file_path_search", "file_text_search", "output", "read_file", "write_file"}, reg.Names())
}

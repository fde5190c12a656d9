package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rahulgovind/neo/protocol"
)

// Output destinations with engine-level meaning.
const (
	DestinationDefault    = "default"
	DestinationCheckpoint = "checkpoint"
)

// outputCommand emits structured data. The value travels in the result's
// structured field so consumers (checkpointing, callers requesting typed
// answers) can read it without scraping transcript text.
type outputCommand struct{}

func (outputCommand) Spec() CommandSpec {
	return CommandSpec{
		Name: "output",
		Description: strings.TrimSpace(`
Emit structured output.

The data after the separator is recorded under the given destination and
type. Use this when asked to return a structured answer.`),
		Parameters: []Parameter{
			{Name: "destination", Description: "Destination for the output. Default: default.", Short: "d", Long: "destination", Default: DestinationDefault},
			{Name: "type", Description: "Type of the data: raw, markdown, or int. Default: raw.", Short: "t", Long: "type", Default: "raw"},
		},
		RequiresStdin: true,
		Examples: strings.TrimSpace(`
▶output -t int｜20■
▶output｜{"name": "John", "age": 30}■`),
	}
}

func (outputCommand) Validate(ws *Workspace, args Args, stdin *string) error {
	typ, _ := args.String("type")
	switch typ {
	case "raw", "markdown", "int":
	default:
		return fmt.Errorf("invalid type %q: must be raw, markdown, or int", typ)
	}
	if typ == "int" && stdin != nil {
		if _, err := strconv.Atoi(strings.TrimSpace(*stdin)); err != nil {
			return fmt.Errorf("cannot convert %q to integer", strings.TrimSpace(*stdin))
		}
	}
	return nil
}

func (outputCommand) Run(ctx context.Context, ws *Workspace, args Args, stdin *string) (*Result, error) {
	typ, _ := args.String("type")
	dest, _ := args.String("destination")

	value := ""
	if stdin != nil {
		value = *stdin
	}
	if typ == "int" {
		value = strings.TrimSpace(value)
		if _, err := strconv.Atoi(value); err != nil {
			return nil, fmt.Errorf("cannot convert %q to integer", value)
		}
	}

	return &Result{
		Content: "Output recorded.",
		Structured: &protocol.StructuredValue{
			Destination: dest,
			Type:        typ,
			Value:       value,
		},
	}, nil
}

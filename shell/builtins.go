package shell

import "time"

// RegisterBuiltins registers the standard command set on a registry.
func RegisterBuiltins(reg *Registry) {
	reg.Register(readFileCommand{})
	reg.Register(writeFileCommand{})
	reg.Register(filePathSearchCommand{})
	reg.Register(fileTextSearchCommand{})
	reg.Register(bashCommand{defaultTimeout: 60 * time.Second})
	reg.Register(outputCommand{})
}

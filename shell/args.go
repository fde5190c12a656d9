package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// Args holds parsed argument values keyed by parameter name. Repeatable
// parameters accumulate; others keep their last value.
type Args struct {
	values map[string][]string
}

// String returns the value for name, falling back to ok=false when the
// parameter was not provided and has no default.
func (a Args) String(name string) (string, bool) {
	vs, ok := a.values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[len(vs)-1], true
}

// StringOr returns the value for name or def when absent.
func (a Args) StringOr(name, def string) string {
	if v, ok := a.String(name); ok {
		return v
	}
	return def
}

// Strings returns all values recorded for a repeatable parameter.
func (a Args) Strings(name string) []string {
	return a.values[name]
}

// Int parses the value for name as an integer.
func (a Args) Int(name string) (int, bool, error) {
	v, ok := a.String(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("argument %s: expected an integer, got %q", name, v)
	}
	return n, true, nil
}

// IntOr parses the value for name as an integer, returning def when absent.
// Malformed values surface as errors.
func (a Args) IntOr(name string, def int) (int, error) {
	n, ok, err := a.Int(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return n, nil
}

// Bool reports whether a boolean flag was set.
func (a Args) Bool(name string) bool {
	v, ok := a.String(name)
	return ok && v == "true"
}

// ParseArgs parses a command's raw argument string against its spec.
// The grammar is argv-style: whitespace-separated tokens, single and
// double quoting, backslash escapes. Flags may be spelled -x, --long,
// or --long=value; positionals fill in declaration order.
func ParseArgs(spec CommandSpec, rawArgs string) (Args, error) {
	tokens, err := Tokenize(rawArgs)
	if err != nil {
		return Args{}, fmt.Errorf("%s: %w", spec.Name, err)
	}

	args := Args{values: make(map[string][]string)}
	for _, p := range spec.Parameters {
		if p.Default != "" {
			args.values[p.Name] = []string{p.Default}
		}
	}

	positionals := spec.positionals()
	posIdx := 0
	seen := make(map[string]bool)

	set := func(p Parameter, value string) {
		if p.Repeatable {
			if !seen[p.Name] {
				args.values[p.Name] = nil // drop the default placeholder
			}
			args.values[p.Name] = append(args.values[p.Name], value)
		} else {
			args.values[p.Name] = []string{value}
		}
		seen[p.Name] = true
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if strings.HasPrefix(tok, "-") && len(tok) > 1 && tok != "--" && !isNegativeNumber(tok) {
			name := tok
			inline := ""
			hasInline := false
			if eq := strings.Index(tok, "="); eq >= 0 {
				name = tok[:eq]
				inline = tok[eq+1:]
				hasInline = true
			}

			p, ok := spec.lookupFlag(name)
			if !ok {
				return Args{}, fmt.Errorf("%s: unknown option %s", spec.Name, name)
			}
			if p.Bool {
				if hasInline {
					return Args{}, fmt.Errorf("%s: option %s takes no value", spec.Name, name)
				}
				args.values[p.Name] = []string{"true"}
				continue
			}
			if hasInline {
				set(p, inline)
				continue
			}
			if i+1 >= len(tokens) {
				return Args{}, fmt.Errorf("%s: option %s requires a value", spec.Name, name)
			}
			i++
			set(p, tokens[i])
			continue
		}

		if posIdx >= len(positionals) {
			return Args{}, fmt.Errorf("%s: unexpected argument %q", spec.Name, tok)
		}
		set(positionals[posIdx], tok)
		posIdx++
	}

	for _, p := range spec.Parameters {
		if !p.Required {
			continue
		}
		if _, ok := args.values[p.Name]; !ok {
			label := p.Name
			if !p.Positional {
				label = p.flagLabel()
			}
			return Args{}, fmt.Errorf("%s: missing required argument %s", spec.Name, label)
		}
	}

	return args, nil
}

// isNegativeNumber distinguishes values like -1 from flags.
func isNegativeNumber(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(tok[1:])
	return err == nil
}

func (s CommandSpec) lookupFlag(spelled string) (Parameter, bool) {
	long := strings.HasPrefix(spelled, "--")
	name := strings.TrimLeft(spelled, "-")
	for _, p := range s.Parameters {
		if p.Positional {
			continue
		}
		if long && p.Long == name {
			return p, true
		}
		if !long && p.Short == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Tokenize splits a raw argument string into argv-style tokens. Quotes
// group words; backslash escapes the next character outside single quotes.
func Tokenize(raw string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote rune // 0 when unquoted

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			if r == '"' {
				quote = 0
			} else if r == '\\' && i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("trailing backslash in arguments")
			}
			i++
			cur.WriteRune(runes[i])
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in arguments", quote)
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

package protocol

import (
	"fmt"
	"strings"
)

// Escape replaces every sentinel character in content with its \u{hex}
// form so command output can carry sentinels without breaking framing.
func Escape(content string) string {
	if !strings.ContainsAny(content, string(Sentinels)) {
		return content
	}
	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		if isSentinel(r) {
			fmt.Fprintf(&sb, `\u%x`, r)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Unescape reverses Escape. Only the escape sequences of the five sentinel
// characters are converted back; any other \u sequence is left untouched.
func Unescape(content string) string {
	if !strings.Contains(content, `\u`) {
		return content
	}
	var sb strings.Builder
	sb.Grow(len(content))
	runes := []rune(content)
	for i := 0; i < len(runes); {
		if runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == 'u' {
			if r, width, ok := matchSentinelEscape(runes[i:]); ok {
				sb.WriteRune(r)
				i += width
				continue
			}
		}
		sb.WriteRune(runes[i])
		i++
	}
	return sb.String()
}

func isSentinel(r rune) bool {
	for _, s := range Sentinels {
		if r == s {
			return true
		}
	}
	return false
}

// matchSentinelEscape checks whether runes begins with the \u{hex} form of a
// sentinel character and returns the sentinel and consumed width.
func matchSentinelEscape(runes []rune) (rune, int, bool) {
	for _, s := range Sentinels {
		esc := []rune(fmt.Sprintf(`\u%x`, s))
		if len(runes) < len(esc) {
			continue
		}
		match := true
		for j, er := range esc {
			if runes[j] != er {
				match = false
				break
			}
		}
		if match {
			return s, len(esc), true
		}
	}
	return 0, 0, false
}

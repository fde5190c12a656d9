// Package protocol implements the sentinel-delimited command protocol that
// the assistant embeds in free-form text.
//
// A command invocation is written as
//
//	▶command_name -f v2 --foo v3 v1｜optional stdin■
//
// and a result as
//
//	✅content■  or  ❌content■
//
// Each sentinel is a single non-ASCII character chosen to be vanishingly
// unlikely in natural text or code. Result content is escaped so that
// sentinel characters produced by a command can never break framing.
package protocol

// Sentinel characters. These are wire-level constants; changing them breaks
// compatibility with persisted transcripts.
const (
	CommandStart   = '▶' // U+25B6, opens an invocation
	CommandEnd     = '■' // U+25A0, closes an invocation or result
	StdinSeparator = '｜' // U+FF5C, separates arguments from stdin
	SuccessPrefix  = '✅' // U+2705, opens a successful result
	ErrorPrefix    = '❌' // U+274C, opens a failed result
)

// Sentinels lists every reserved character.
var Sentinels = []rune{CommandStart, CommandEnd, StdinSeparator, SuccessPrefix, ErrorPrefix}

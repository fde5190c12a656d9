package agent

import (
	"crypto/sha256"
	"fmt"

	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/protocol"
)

// invocationSignature computes a deterministic signature for an
// invocation (name + hash of arguments and stdin).
func invocationSignature(inv *protocol.InvocationSegment) string {
	payload := inv.RawArgs
	if inv.Stdin != nil {
		payload += "\x00" + *inv.Stdin
	}
	h := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%s:%x", inv.Name, h[:8])
}

// recentInvocationSignatures extracts signatures from the most recent
// invocations in the transcript, in chronological order.
func recentInvocationSignatures(turns []conversation.Turn, count int) []string {
	var sigs []string
	for i := len(turns) - 1; i >= 0 && len(sigs) < count; i-- {
		if turns[i].Role != conversation.RoleAssistant {
			continue
		}
		invs := turns[i].Invocations()
		for j := len(invs) - 1; j >= 0 && len(sigs) < count; j-- {
			sigs = append(sigs, invocationSignature(invs[j]))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// detectLoop reports whether the last windowSize invocations follow a
// repeating pattern of length 1, 2, or 3.
func detectLoop(turns []conversation.Turn, windowSize int) bool {
	sigs := recentInvocationSignatures(turns, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}

package agent

import (
	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/llm"
)

// checkpointPreamble introduces the checkpoint summary when it is
// presented as a synthetic leading turn.
const checkpointPreamble = "Summary of the conversation so far (earlier turns were pruned):\n\n"

// transcriptMessages renders a conversation state for the model: an
// active checkpoint becomes a synthetic leading turn, followed by the
// surviving turns in wire form.
func transcriptMessages(state conversation.State) []llm.Message {
	var messages []llm.Message

	if cp, ok := state.Checkpoint(); ok {
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: checkpointPreamble + cp.Summary,
		})
	}

	for _, turn := range state.Turns() {
		messages = append(messages, llm.Message{
			Role:    messageRole(turn.Role),
			Content: turn.WireText(),
		})
	}
	return messages
}

func messageRole(role conversation.Role) llm.Role {
	switch role {
	case conversation.RoleAssistant:
		return llm.RoleAssistant
	case conversation.RoleSystem:
		return llm.RoleSystem
	default:
		return llm.RoleUser
	}
}

// Package history turns a transcript into the prompt message sequence one
// agent sees on its turn.
//
// [Build] is pure: the same transcript, agent, and registry always produce
// the same messages, and nothing is read from or written to the outside
// world.
package history

import (
	"fmt"

	"github.com/Iron-Ham/duet/internal/errors"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/transcript"
)

// Role is the chat role of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt sent to the completion endpoint.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// OpeningPrompt is the synthetic instruction given to the opener when the
// transcript is empty.
func OpeningPrompt(otherName string) string {
	return fmt.Sprintf("You're meeting %s for the first time. Start a conversation naturally - say whatever comes to mind. No predetermined topic, just be yourself and see where the conversation goes.", otherName)
}

// ReplyPrompt is the synthetic nudge appended when another agent spoke last.
func ReplyPrompt(otherName, content string) string {
	return fmt.Sprintf("%s just said: \"%s\"\n\nRespond to them naturally as yourself.", otherName, content)
}

// Build returns the ordered prompt messages for forAgent. The system
// instruction is not included; the completion client prepends it.
//
// Error-marker entries are never shown to the model.
func Build(entries []transcript.Entry, forAgent persona.AgentID, reg *persona.Registry) ([]Message, error) {
	if !reg.Contains(forAgent) {
		return nil, errors.NewInvalidTranscriptStateError("no persona registered for agent").WithAgent(forAgent.String())
	}

	var spoken []transcript.Entry
	for _, e := range entries {
		if e.IsMessage() {
			spoken = append(spoken, e)
		}
	}

	if len(spoken) == 0 {
		if forAgent != reg.Opener() {
			return []Message{}, nil
		}
		return []Message{{
			Role:    RoleUser,
			Content: OpeningPrompt(reg.Name(reg.Next(forAgent))),
		}}, nil
	}

	msgs := make([]Message, 0, len(spoken)+1)
	for _, e := range spoken {
		if !reg.Contains(e.Agent) {
			return nil, errors.NewInvalidTranscriptStateError(fmt.Sprintf("entry %d authored by unregistered agent", e.Seq)).WithAgent(e.Agent.String())
		}
		if e.Agent == forAgent {
			msgs = append(msgs, Message{Role: RoleAssistant, Content: e.Content})
			continue
		}
		msgs = append(msgs, Message{
			Role:    RoleUser,
			Content: fmt.Sprintf("%s: %s", reg.Name(e.Agent), e.Content),
		})
	}

	if last := spoken[len(spoken)-1]; last.Agent != forAgent {
		msgs = append(msgs, Message{
			Role:    RoleUser,
			Content: ReplyPrompt(reg.Name(last.Agent), last.Content),
		})
	}

	return msgs, nil
}

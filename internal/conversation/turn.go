package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the dialogue.
type Turn struct {
	Role Role
	Text string
}

// History is the caller-owned dialogue in chronological order.
type History []Turn

// HistoryPair is one exchange as sent on the wire: ["user text", "assistant text"].
type HistoryPair struct {
	User      string
	Assistant string
}

func (p *HistoryPair) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("conversation: chat_history entry must be [user, assistant]: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("conversation: chat_history entry must have 2 elements, got %d", len(parts))
	}
	p.User, p.Assistant = parts[0], parts[1]
	return nil
}

func (p HistoryPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.User, p.Assistant})
}

// HistoryFromPairs expands each pair into a user turn followed by an assistant turn.
func HistoryFromPairs(pairs []HistoryPair) History {
	if len(pairs) == 0 {
		return nil
	}
	history := make(History, 0, len(pairs)*2)
	for _, p := range pairs {
		history = append(history,
			Turn{Role: RoleUser, Text: p.User},
			Turn{Role: RoleAssistant, Text: p.Assistant},
		)
	}
	return history
}

// Messages converts the history for the generator without reordering it.
func (h History) Messages() []llm.Message {
	if len(h) == 0 {
		return nil
	}
	out := make([]llm.Message, 0, len(h))
	for _, turn := range h {
		role := llm.RoleUser
		if turn.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: turn.Text})
	}
	return out
}

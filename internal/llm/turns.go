package llm

import (
	"fmt"
	"strings"
)

// conversationTurns splits system text out of messages and returns the rest
// in strict user/assistant alternation, starting with a user turn. Blank
// turns are dropped, consecutive turns from the same role are merged, and
// assistant turns before the first user turn are dropped.
func conversationTurns(messages []Message) ([]string, []Message, error) {
	var system []string
	turns := make([]Message, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		switch msg.Role {
		case RoleSystem:
			if content != "" {
				system = append(system, content)
			}
			continue
		case RoleUser, RoleAssistant:
		default:
			return nil, nil, fmt.Errorf("llm: unsupported role %q", msg.Role)
		}
		if content == "" && len(msg.Images) == 0 {
			continue
		}
		if len(turns) == 0 && msg.Role == RoleAssistant {
			continue
		}

		if n := len(turns); n > 0 && turns[n-1].Role == msg.Role {
			prev := &turns[n-1]
			if content != "" {
				if prev.Content != "" {
					prev.Content += "\n\n"
				}
				prev.Content += content
			}
			if len(msg.Images) > 0 {
				prev.Images = append(append([]Image(nil), prev.Images...), msg.Images...)
			}
			continue
		}
		turns = append(turns, Message{Role: msg.Role, Content: content, Images: msg.Images})
	}
	return system, turns, nil
}

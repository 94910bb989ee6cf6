package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationTurnsAlternate(t *testing.T) {
	img := Image{Format: ImageFormatPNG, Data: []byte{1}}
	input := []Message{
		{Role: RoleAssistant, Content: "stray greeting"},
		{Role: RoleSystem, Content: " extra rules "},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "  "},
		{Role: RoleUser, Content: "second", Images: []Image{img}},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleAssistant, Content: "more"},
		{Role: RoleUser, Content: "third"},
	}

	system, turns, err := conversationTurns(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"extra rules"}, system)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "first\n\nsecond", Images: []Image{img}},
		{Role: RoleAssistant, Content: "answer\n\nmore"},
		{Role: RoleUser, Content: "third"},
	}, turns)
	for i := 1; i < len(turns); i++ {
		assert.NotEqual(t, turns[i-1].Role, turns[i].Role, "turns %d and %d share a role", i-1, i)
	}
	assert.Equal(t, "first", input[2].Content)
}

func TestConversationTurnsRejectsUnknownRole(t *testing.T) {
	_, _, err := conversationTurns([]Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}

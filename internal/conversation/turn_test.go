package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medcompanion-ai/internal/llm"
)

func TestHistoryPairJSON(t *testing.T) {
	var pairs []HistoryPair
	require.NoError(t, json.Unmarshal([]byte(`[["hi","hello"],["bye","see you"]]`), &pairs))
	assert.Equal(t, []HistoryPair{{User: "hi", Assistant: "hello"}, {User: "bye", Assistant: "see you"}}, pairs)

	out, err := json.Marshal(pairs)
	require.NoError(t, err)
	assert.JSONEq(t, `[["hi","hello"],["bye","see you"]]`, string(out))
}

func TestHistoryPairRejectsBadShapes(t *testing.T) {
	for _, raw := range []string{`[["a"]]`, `[["a","b","c"]]`, `[{"user":"a"}]`, `["a"]`} {
		var pairs []HistoryPair
		assert.Error(t, json.Unmarshal([]byte(raw), &pairs), raw)
	}
}

func TestHistoryMessages(t *testing.T) {
	assert.Nil(t, HistoryFromPairs(nil))
	assert.Nil(t, History(nil).Messages())

	msgs := HistoryFromPairs([]HistoryPair{{User: "a", Assistant: "b"}}).Messages()
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
	}, msgs)
}

func TestLoadPersona(t *testing.T) {
	persona, err := LoadPersona("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, persona)

	dir := t.TempDir()
	path := filepath.Join(dir, "persona.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Be brief and kind.\n"), 0o600))
	persona, err = LoadPersona(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief and kind.", persona)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = LoadPersona(empty)
	assert.Error(t, err)

	_, err = LoadPersona(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

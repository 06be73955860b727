package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptFileByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pirate.txt"), []byte("Talk like a pirate.\n"), 0o644))

	msg, err := NewFileLoader(dir).LoadPromptFile("pirate")
	require.NoError(t, err)
	assert.Equal(t, conversation.NewChatMessage(conversation.RoleSystem, "Talk like a pirate."), msg)
}

func TestLoadPromptFileByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.prompt")
	require.NoError(t, os.WriteFile(path, []byte("Be brief."), 0o644))

	msg, err := NewFileLoader(filepath.Join(dir, "elsewhere")).LoadPromptFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", msg.Content)
}

func TestLoadPromptFileTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "lang.tmpl"),
		[]byte(`Answer in {{ .language | default "english" | upper }}.`),
		0o644,
	))

	l := NewFileLoader(dir)
	msg, err := l.LoadPromptFile("lang")
	require.NoError(t, err)
	assert.Equal(t, "Answer in ENGLISH.", msg.Content)

	l.Vars["language"] = "french"
	msg, err = l.LoadPromptFile("lang")
	require.NoError(t, err)
	assert.Equal(t, "Answer in FRENCH.", msg.Content)
}

func TestLoadPromptFileMissing(t *testing.T) {
	_, err := NewFileLoader(t.TempDir()).LoadPromptFile("nope")
	require.Error(t, err)
}

func TestLoadPromptFileBadTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("{{ .unclosed "), 0o644))
	_, err := NewFileLoader(dir).LoadPromptFile("bad")
	require.Error(t, err)
}

package cmds

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDirs struct {
	sessions string
	legacy   string
}

func setupViper(t *testing.T) testDirs {
	dir := t.TempDir()
	dirs := testDirs{
		sessions: filepath.Join(dir, "sessions"),
		legacy:   filepath.Join(dir, "palaver.json"),
	}
	viper.Set("sessions-dir", dirs.sessions)
	viper.Set("legacy-cache-path", dirs.legacy)
	viper.Set("prompts-dir", filepath.Join(dir, "prompts"))
	t.Cleanup(viper.Reset)
	return dirs
}

func saveSession(t *testing.T, dirs testDirs, name string, conv conversation.Conversation) {
	store, err := session.NewYAMLFileStore(dirs.sessions)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), conv, name))
	require.NoError(t, store.Close())
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// runGlazed collects the rows run sends to a table processor.
func runGlazed(t *testing.T, run func(gp middlewares.Processor) error) ([]types.Row, error) {
	gp := middlewares.NewTableProcessor()
	if err := run(gp); err != nil {
		return nil, err
	}
	require.NoError(t, gp.Close(context.Background()))
	return gp.GetTable().Rows, nil
}

func column(t *testing.T, rows []types.Row, field string) []interface{} {
	ret := []interface{}{}
	for _, row := range rows {
		v, ok := row.Get(field)
		require.True(t, ok, "missing field %s", field)
		ret = append(ret, v)
	}
	return ret
}

func runSessionList(t *testing.T) ([]types.Row, string, error) {
	listCmd, err := NewSessionListCommand()
	require.NoError(t, err)
	var errOut bytes.Buffer
	listCmd.errOut = &errOut
	rows, err := runGlazed(t, func(gp middlewares.Processor) error {
		return listCmd.RunIntoGlazeProcessor(context.Background(), nil, gp)
	})
	return rows, errOut.String(), err
}

func TestSessionList(t *testing.T) {
	dirs := setupViper(t)
	for _, name := range []string{"b", "c", "a"} {
		saveSession(t, dirs, name, conversation.InitConversation("hi "+name))
	}

	rows, _, err := runSessionList(t)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b", "c"}, column(t, rows, "name"))
	assert.Equal(t, filepath.Join(dirs.sessions, "a.yaml"), column(t, rows, "path")[0])
}

func TestSessionPathAndDump(t *testing.T) {
	dirs := setupViper(t)
	saveSession(t, dirs, "work", conversation.InitConversation("hello"))

	out, _, err := runCommand(t, NewSessionCommand(), "path", "work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dirs.sessions, "work.yaml")+"\n", out)

	out, _, err = runCommand(t, NewSessionCommand(), "dump", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "role: user")
	assert.Contains(t, out, "content: hello")

	_, _, err = runCommand(t, NewSessionCommand(), "path", "missing")
	assert.True(t, errors.Is(err, session.ErrSessionNotFound))
}

func TestSessionDeleteAndRename(t *testing.T) {
	dirs := setupViper(t)
	saveSession(t, dirs, "old", conversation.InitConversation("hello"))

	_, _, err := runCommand(t, NewSessionCommand(), "rename", "old", "new")
	require.NoError(t, err)

	rows, _, err := runSessionList(t)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"new"}, column(t, rows, "name"))

	_, _, err = runCommand(t, NewSessionCommand(), "delete", "old")
	assert.True(t, errors.Is(err, session.ErrSessionNotFound))

	_, _, err = runCommand(t, NewSessionCommand(), "delete", "new")
	require.NoError(t, err)

	rows, _, err = runSessionList(t)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLegacyMigrationStopsCommand(t *testing.T) {
	dirs := setupViper(t)
	legacy := `[{"role": "user", "content": "old question"}, {"role": "assistant", "content": "old answer"}]`
	require.NoError(t, os.WriteFile(dirs.legacy, []byte(legacy), 0o644))

	_, errOut, err := runSessionList(t)
	require.Error(t, err)
	assert.True(t, errors.Is(err, session.ErrMigrationTargetRequired))
	assert.Contains(t, errOut, "old style cache file detected")

	viper.Set("session", "last")
	_, _, err = runCommand(t, NewSessionCommand(), "path", "anything")
	assert.True(t, errors.Is(err, session.ErrScratchMigrationTarget))

	viper.Set("session", "archive")
	out, errOut, err := runCommand(t, NewSessionCommand(), "path", "archive")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "attempting to migrate old cache to session 'archive'...")
	assert.Contains(t, errOut, "done.")

	_, err = os.Stat(dirs.legacy)
	assert.True(t, os.IsNotExist(err))

	rows, _, err := runSessionList(t)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"archive"}, column(t, rows, "name"))
}

func TestTokensCount(t *testing.T) {
	countCmd, err := NewCountCommand()
	require.NoError(t, err)
	countCmd.stdin = strings.NewReader("hello world")

	rows, err := runGlazed(t, func(gp middlewares.Processor) error {
		return countCmd.count(context.Background(), &CountSettings{Model: "gpt-4"}, gp)
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"-"}, column(t, rows, "source"))
	assert.Equal(t, []interface{}{"gpt-4"}, column(t, rows, "model"))
	assert.Equal(t, []interface{}{2}, column(t, rows, "tokens"))
}

func TestTokensCountFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	require.NoError(t, os.WriteFile(first, []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("hello"), 0o644))

	countCmd, err := NewCountCommand()
	require.NoError(t, err)
	rows, err := runGlazed(t, func(gp middlewares.Processor) error {
		return countCmd.count(context.Background(), &CountSettings{Model: "gpt-4", Files: []string{first, second}}, gp)
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{first, second}, column(t, rows, "source"))
	assert.Equal(t, []interface{}{2, 1}, column(t, rows, "tokens"))

	_, err = runGlazed(t, func(gp middlewares.Processor) error {
		return countCmd.count(context.Background(), &CountSettings{Model: "gpt-4", Files: []string{filepath.Join(dir, "missing")}}, gp)
	})
	assert.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	q, err := buildQuery([]string{"what", "is", "this"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "what is this", q)

	q, err = buildQuery([]string{"explain"}, strings.NewReader("ls -la\n"))
	require.NoError(t, err)
	assert.Equal(t, "explain\nls -la", q)

	q, err = buildQuery(nil, strings.NewReader("just stdin"))
	require.NoError(t, err)
	assert.Equal(t, "just stdin", q)

	q, err = buildQuery(nil, strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestExitCode(t *testing.T) {
	var warnings []string
	warn := func(s string) { warnings = append(warnings, s) }

	assert.Equal(t, 0, ExitCode(nil, warn))
	assert.Equal(t, exitInterrupted, ExitCode(context.Canceled, warn))
	assert.Empty(t, warnings)

	assert.Equal(t, 0, ExitCode(chat.ErrNothingToDo, warn))
	assert.Equal(t, 1, ExitCode(chat.NewReplyError("query", errors.New("503")), warn))
	assert.Equal(t, 1, ExitCode(errors.Wrap(session.ErrSessionNotFound, "delete"), warn))
	assert.Len(t, warnings, 3)
}

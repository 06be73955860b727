package repl

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcnksm/go-input"
)

type scriptedReader struct {
	lines   []string
	end     error
	prompts []string
}

func (s *scriptedReader) ReadLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		if s.end != nil {
			return "", s.end
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

type recordingPresenter struct {
	printed []conversation.Conversation
}

func (p *recordingPresenter) PrintMessages(conv conversation.Conversation) error {
	p.printed = append(p.printed, conv)
	return nil
}

func (p *recordingPresenter) PrintTokens(conversation.Conversation) error {
	return nil
}

type loopFixture struct {
	store     *session.InMemoryStore
	querier   *chat.MockQuerier
	presenter *recordingPresenter
	settings  *settings.Settings
}

func newLoopFixture(replies ...string) *loopFixture {
	return &loopFixture{
		store:     session.NewInMemoryStore(),
		querier:   chat.NewMockQuerier(replies...),
		presenter: &recordingPresenter{},
		settings:  settings.NewSettingsWithDirs("/cache", "/config"),
	}
}

func (f *loopFixture) loop(reader LineReader, sessionName string) *Loop {
	responder := chat.NewResponder(f.querier, f.store, f.settings)
	return NewLoop(reader, responder, f.presenter, sessionName)
}

func TestLoopStartsFreshConversation(t *testing.T) {
	f := newLoopFixture("first answer", "second answer")
	reader := &scriptedReader{lines: []string{"first", "second", "quit"}}

	conv, err := f.loop(reader, "work").Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, conv, 4)
	assert.Equal(t, "first", conv[0].Content)
	assert.Equal(t, "second answer", conv[3].Content)

	stored, err := f.store.Load(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, conv, stored)

	require.Len(t, f.presenter.printed, 2)
	assert.Equal(t, conv.Tail(1), f.presenter.printed[1])
	assert.Equal(t, []string{DefaultPrompt, DefaultPrompt, DefaultPrompt}, reader.prompts)
}

func TestLoopContinuesExistingConversation(t *testing.T) {
	f := newLoopFixture("more")
	existing := conversation.InitConversation("hi")
	existing = append(existing, conversation.NewChatMessage(conversation.RoleAssistant, "hello"))

	reader := &scriptedReader{lines: []string{"again"}}
	conv, err := f.loop(reader, "").Run(context.Background(), existing)
	require.NoError(t, err)
	require.Len(t, conv, 4)
	assert.Equal(t, existing, conv[:2])

	stored, err := f.store.Load(context.Background(), settings.DefaultScratchSession)
	require.NoError(t, err)
	assert.Equal(t, conv, stored)

	require.Len(t, f.querier.Received, 1)
	assert.Len(t, f.querier.Received[0], 3)
}

func TestLoopSkipsEmptyAndQuitIsCaseInsensitive(t *testing.T) {
	f := newLoopFixture("answer")
	reader := &scriptedReader{lines: []string{"", "   ", "QUIT", "never"}}

	conv, err := f.loop(reader, "s").Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, conv)
	assert.Empty(t, f.querier.Received)
	assert.Equal(t, []string{"never"}, reader.lines)
}

func TestLoopInterruptIsNormalExit(t *testing.T) {
	f := newLoopFixture("answer")
	reader := &scriptedReader{lines: []string{"one"}, end: input.ErrInterrupted}

	conv, err := f.loop(reader, "s").Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, conv, 2)
}

func TestLoopReplyErrorStops(t *testing.T) {
	f := newLoopFixture()
	f.querier.Err = errors.New("boom")
	reader := &scriptedReader{lines: []string{"one", "two"}}

	conv, err := f.loop(reader, "s").Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, chat.IsReplyError(err))
	assert.Empty(t, conv)

	stored, err := f.store.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLoopCancelledContext(t *testing.T) {
	f := newLoopFixture("answer")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &scriptedReader{lines: []string{"one"}}
	conv, err := f.loop(reader, "s").Run(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, conv)
	assert.Empty(t, reader.prompts)
}

func TestInputReader(t *testing.T) {
	var out bytes.Buffer
	r := NewInputReader(strings.NewReader("what is go\n"), &out)

	line, err := r.ReadLine(DefaultPrompt)
	require.NoError(t, err)
	assert.Equal(t, "what is go", line)
	assert.Contains(t, out.String(), "query")

	_, err = r.ReadLine(DefaultPrompt)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestIsExitError(t *testing.T) {
	assert.True(t, isExitError(io.EOF))
	assert.True(t, isExitError(errors.Wrap(io.EOF, "reading query")))
	assert.True(t, isExitError(input.ErrInterrupted))
	assert.False(t, isExitError(errors.New("unexpected EOF in config")))
}

func TestLoopStopsOnReadError(t *testing.T) {
	f := newLoopFixture("answer")
	reader := &scriptedReader{end: errors.New("failed to read the input: unexpected EOF")}

	_, err := f.loop(reader, "s").Run(context.Background(), nil)
	require.Error(t, err)
}

package repl

import (
	"context"
	"io"
	"strings"

	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tcnksm/go-input"
)

const (
	DefaultPrompt      = "query (type 'quit' to exit): "
	DefaultExitKeyword = "quit"
)

// LineReader asks the user for one line of input.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// eofReader remembers whether the underlying reader hit the end of input,
// which go-input reports as an empty answer.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof = true
	}
	return n, err
}

// InputReader reads lines with go-input.
type InputReader struct {
	ui     *input.UI
	reader *eofReader
}

func NewInputReader(r io.Reader, w io.Writer) *InputReader {
	er := &eofReader{r: r}
	return &InputReader{
		ui: &input.UI{
			Reader: er,
			Writer: w,
		},
		reader: er,
	}
}

func (r *InputReader) ReadLine(prompt string) (string, error) {
	if r.reader.eof {
		return "", io.EOF
	}
	answer, err := r.ui.Ask(prompt, &input.Options{
		Required:  false,
		HideOrder: true,
	})
	if err != nil {
		return "", err
	}
	if answer == "" && r.reader.eof {
		return "", io.EOF
	}
	return answer, nil
}

// isExitError reports whether err means the user wants to leave: an interrupt
// or the end of the input.
func isExitError(err error) bool {
	return errors.Is(err, input.ErrInterrupted) || errors.Is(err, io.EOF)
}

// Loop is the interactive mode: read a query, get and store the reply, print
// it, until the exit keyword, an interrupt or the end of input.
type Loop struct {
	Reader      LineReader
	Responder   *chat.Responder
	Presenter   chat.Presenter
	Session     string
	Prompt      string
	ExitKeyword string
}

func NewLoop(reader LineReader, responder *chat.Responder, presenter chat.Presenter, sessionName string) *Loop {
	return &Loop{
		Reader:      reader,
		Responder:   responder,
		Presenter:   presenter,
		Session:     sessionName,
		Prompt:      DefaultPrompt,
		ExitKeyword: DefaultExitKeyword,
	}
}

// Run continues conv, which may be empty, and returns the last persisted
// state of the conversation. Leaving the loop is not an error. A turn
// interrupted by ctx is dropped and nothing is saved for it.
func (l *Loop) Run(ctx context.Context, conv conversation.Conversation) (conversation.Conversation, error) {
	for {
		if ctx.Err() != nil {
			return conv, nil
		}

		query, err := l.Reader.ReadLine(l.Prompt)
		if err != nil {
			if isExitError(err) {
				log.Debug().Err(err).Msg("leaving interactive mode")
				return conv, nil
			}
			return conv, err
		}

		query = strings.TrimSpace(query)
		if strings.EqualFold(query, l.ExitKeyword) {
			return conv, nil
		}
		if query == "" {
			continue
		}

		var pending conversation.Conversation
		if len(conv) == 0 {
			pending = conversation.InitConversation(query)
		} else {
			pending = conversation.ContinueConversation(conv, query)
		}

		next, err := l.Responder.FetchAndCache(ctx, pending, l.Session)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return conv, nil
			}
			return conv, err
		}
		conv = next

		if err := l.Presenter.PrintMessages(conv.Tail(1)); err != nil {
			return conv, err
		}
	}
}

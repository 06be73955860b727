package cmds

import (
	"context"
	"io"
	"os"

	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/printer"
	"github.com/go-go-golems/palaver/pkg/prompts"
	"github.com/go-go-golems/palaver/pkg/repl"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/go-go-golems/palaver/pkg/steps/ai/openai"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AddChatFlags registers the flags of the default (query) command.
func AddChatFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("prompt-file", "p", "", "Prompt file used as system message of a new conversation")
	flags.BoolP("interactive", "i", false, "Start an interactive chat session")
	flags.BoolP("stream", "s", false, "Stream the reply")
	flags.BoolP("tokens", "t", false, "Display token count and skip the query")
	flags.BoolP("raw", "r", false, "Print the reply as raw text")
	flags.BoolP("extract", "e", false, "Print only the code blocks of the last reply")
	flags.BoolP("only", "l", false, "Print only the last message")
	flags.StringP("chat-gpt", "c", "", "Model to query (default "+settings.DefaultModel+")")
	flags.Float64("temperature", -1, "Sampling temperature (0.0 to 2.0)")
}

// RunChat is the default command: build or continue a conversation from the
// query, get the reply and print it, then optionally keep chatting.
func RunChat(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	opts := printer.Options{
		Raw:     viper.GetBool("raw"),
		Only:    viper.GetBool("only"),
		Extract: viper.GetBool("extract"),
	}

	return withCommandEnv(cmd, opts, func(ctx context.Context, e *env) error {
		sessionName := viper.GetString("session")
		if sessionName != "" {
			if err := session.ValidateName(sessionName); err != nil {
				return err
			}
		}

		var stdin io.Reader
		if !stdinIsTerminal() {
			stdin = cmd.InOrStdin()
		}
		query, err := buildQuery(args, stdin)
		if err != nil {
			return err
		}

		observer, done := e.printer.Observer()
		responder := chat.NewResponder(
			newLazyQuerier(e.settings),
			e.store,
			e.settings,
			chat.WithObserver(observer),
			chat.WithObserverDone(done),
		)

		handler := &chat.Handler{
			Store:        e.store,
			Responder:    responder,
			PromptLoader: prompts.NewFileLoader(e.settings.PromptsDir),
			Presenter:    e.printer,
		}

		interactive := viper.GetBool("interactive")
		conv, err := handler.HandleInput(ctx, query, chat.InputOptions{
			Session:     sessionName,
			PromptFile:  viper.GetString("prompt-file"),
			Tokens:      viper.GetBool("tokens"),
			Interactive: interactive,
		})
		if err != nil {
			return err
		}
		if !interactive {
			return nil
		}

		reader, closeReader := openLineReader()
		defer closeReader()

		_, err = repl.NewLoop(reader, responder, e.printer, sessionName).Run(ctx, conv)
		return err
	})
}

// newLazyQuerier defers creating the OpenAI client until a reply is needed,
// so that replaying a session or counting tokens works without an API key.
func newLazyQuerier(s *settings.Settings) chat.Querier {
	var q *openai.Querier
	return chat.QuerierFunc(func(ctx context.Context, conv conversation.Conversation) (chat.Reply, error) {
		if q == nil {
			var err error
			q, err = openai.NewQuerier(s)
			if err != nil {
				return chat.Reply{}, err
			}
		}
		return q.Query(ctx, conv)
	})
}

// openLineReader reads interactive input from the controlling terminal, so
// that the loop also works after a query was piped in on stdin.
func openLineReader() (repl.LineReader, func()) {
	tty, err := repl.OpenTTY()
	if err != nil {
		log.Debug().Err(err).Msg("could not open tty, reading from stdin")
		return repl.NewInputReader(os.Stdin, os.Stdout), func() {}
	}
	return repl.NewInputReader(tty, tty), func() {
		_ = tty.Close()
	}
}

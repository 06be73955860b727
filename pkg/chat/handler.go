package chat

import (
	"context"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PromptLoader turns a prompt file reference into the seed message of a new conversation.
type PromptLoader interface {
	LoadPromptFile(name string) (conversation.Message, error)
}

// Presenter displays conversations. It is given the full conversation after a
// turn, and only the new reply inside the interactive loop.
type Presenter interface {
	PrintMessages(conv conversation.Conversation) error
	PrintTokens(conv conversation.Conversation) error
}

type InputOptions struct {
	// Session is the named session, empty for a sessionless query.
	Session    string
	PromptFile string
	// Tokens prints token counts instead of querying.
	Tokens      bool
	Interactive bool
}

type Handler struct {
	Store        session.Store
	Responder    *Responder
	PromptLoader PromptLoader
	Presenter    Presenter
}

// HandleInput builds or continues the conversation for query, fetches a reply
// when the last message is from the user, and prints the result.
//
// Sessionless queries always start a new conversation. A named session is
// continued if it has content, and a prompt file is refused for it in that
// case, since seed messages only go at the start of a conversation.
//
// The returned conversation is what an interactive loop should continue from.
func (h *Handler) HandleInput(
	ctx context.Context,
	query string,
	opts InputOptions,
) (conversation.Conversation, error) {
	log.Debug().
		Str("query", query).
		Str("session", opts.Session).
		Str("promptFile", opts.PromptFile).
		Bool("tokens", opts.Tokens).
		Bool("interactive", opts.Interactive).
		Msg("cli input")

	var conv conversation.Conversation
	if opts.Session != "" {
		stored, err := h.Store.Load(ctx, opts.Session)
		if err != nil {
			return nil, err
		}
		conv = stored
	}

	if len(conv) > 0 {
		if opts.PromptFile != "" {
			return nil, ErrPromptForExistingSession
		}
		conv = conversation.ContinueConversation(conv, query)
	} else {
		var seeds []conversation.Message
		if opts.PromptFile != "" {
			if h.PromptLoader == nil {
				return nil, errors.New("no prompt loader configured")
			}
			seed, err := h.PromptLoader.LoadPromptFile(opts.PromptFile)
			if err != nil {
				return nil, err
			}
			seeds = append(seeds, seed)
		}
		if query != "" || len(seeds) > 0 {
			conv = conversation.InitConversation(query, seeds...)
		}
	}

	if len(conv) == 0 {
		if opts.Interactive {
			return conv, nil
		}
		return nil, ErrNothingToDo
	}

	if opts.Tokens {
		return conv, h.Presenter.PrintTokens(conv)
	}

	if conversation.NeedsReply(conv) {
		next, err := h.Responder.FetchAndCache(ctx, conv, opts.Session)
		if err != nil {
			return conv, err
		}
		conv = next
	}

	return conv, h.Presenter.PrintMessages(conv)
}

package chat

import (
	"context"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/helpers"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Accumulate turns reply into exactly one assistant message appended to conv.
//
// For partial replies, the last value received is the final content, and an
// empty stream yields an empty message. observer, if not nil, is called after
// every partial value. If ctx is cancelled or the stream reports an error, conv
// is returned unchanged together with the error.
func Accumulate(
	ctx context.Context,
	conv conversation.Conversation,
	reply Reply,
	observer Observer,
) (conversation.Conversation, error) {
	var content string

	switch reply.Kind {
	case ReplyComplete:
		content = reply.Message.Content
	case ReplyPartial:
		c, err := collectPartials(ctx, reply.Partials, observer)
		if err != nil {
			return conv, err
		}
		content = c
	default:
		return conv, errors.Wrapf(ErrUnknownReplyKind, "kind %d", reply.Kind)
	}

	ret := make(conversation.Conversation, 0, len(conv)+1)
	ret = append(ret, conv...)
	return append(ret, conversation.NewChatMessage(conversation.RoleAssistant, content)), nil
}

func collectPartials(
	ctx context.Context,
	partials <-chan helpers.Result[string],
	observer Observer,
) (string, error) {
	content := ""
	if partials == nil {
		return content, nil
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r, ok := <-partials:
			if !ok {
				// a producer may close the channel because ctx was cancelled
				if err := ctx.Err(); err != nil {
					return "", err
				}
				return content, nil
			}
			v, err := r.Value()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return "", err
				}
				if IsReplyError(err) {
					return "", err
				}
				return "", NewReplyError("stream", err)
			}
			content = v
			if observer != nil {
				observer(content)
			}
		}
	}
}

// Responder asks the Querier for a reply, folds it into the conversation and
// persists the result under the active session.
type Responder struct {
	querier      Querier
	store        session.Store
	settings     *settings.Settings
	observer     Observer
	// observerDone runs once the reply is accumulated or aborted.
	observerDone func()
}

type ResponderOption func(*Responder)

func WithObserver(observer Observer) ResponderOption {
	return func(r *Responder) {
		r.observer = observer
	}
}

func WithObserverDone(done func()) ResponderOption {
	return func(r *Responder) {
		r.observerDone = done
	}
}

func NewResponder(
	querier Querier,
	store session.Store,
	s *settings.Settings,
	options ...ResponderOption,
) *Responder {
	ret := &Responder{
		querier:  querier,
		store:    store,
		settings: s,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// FetchAndCache queries a reply for conv and saves the extended conversation
// under sessionName, or the scratch session if sessionName is empty. Nothing
// is saved when the query or the stream fails.
func (r *Responder) FetchAndCache(
	ctx context.Context,
	conv conversation.Conversation,
	sessionName string,
) (conversation.Conversation, error) {
	name := r.settings.SessionOrScratch(sessionName)
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Str("session", name).Logger()

	logger.Debug().Int("messages", len(conv)).Msg("querying reply")

	reply, err := r.querier.Query(ctx, conv)
	if err != nil {
		if errors.Is(err, context.Canceled) || IsReplyError(err) {
			return conv, err
		}
		return conv, NewReplyError("query", err)
	}

	ret, err := Accumulate(ctx, conv, reply, r.observer)
	if r.observerDone != nil {
		r.observerDone()
	}
	if err != nil {
		logger.Debug().Err(err).Msg("reply aborted, nothing persisted")
		return conv, err
	}

	if err := ctx.Err(); err != nil {
		logger.Debug().Err(err).Msg("interrupted before saving, nothing persisted")
		return conv, err
	}

	if err := r.store.Save(ctx, ret, name); err != nil {
		return conv, errors.Wrapf(err, "could not save session %s", name)
	}

	logger.Debug().
		Str("kind", reply.Kind.String()).
		Int("messages", len(ret)).
		Msg("reply stored")
	return ret, nil
}

package chat

import (
	"context"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/helpers"
)

type ReplyKind int

const (
	// ReplyComplete carries the whole answer in Message.
	ReplyComplete ReplyKind = iota
	// ReplyPartial carries a stream of content snapshots in Partials.
	ReplyPartial
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyComplete:
		return "complete"
	case ReplyPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Reply is what a Querier hands back: either one complete message, or a
// channel of partial contents. Each partial value is the full content
// received so far and supersedes the previous one. The channel is closed when
// the reply is finished; an error result aborts it.
type Reply struct {
	Kind     ReplyKind
	Message  conversation.Message
	Partials <-chan helpers.Result[string]
}

func Complete(msg conversation.Message) Reply {
	return Reply{
		Kind:    ReplyComplete,
		Message: msg,
	}
}

func Partial(partials <-chan helpers.Result[string]) Reply {
	return Reply{
		Kind:     ReplyPartial,
		Partials: partials,
	}
}

// Querier produces the assistant reply for a conversation ending in a user message.
type Querier interface {
	Query(ctx context.Context, conv conversation.Conversation) (Reply, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, conv conversation.Conversation) (Reply, error)

func (f QuerierFunc) Query(ctx context.Context, conv conversation.Conversation) (Reply, error) {
	return f(ctx, conv)
}

// Observer is notified with the content so far after each partial update.
type Observer func(content string)

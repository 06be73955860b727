package openai

import (
	"context"
	"io"
	"math"

	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/helpers"
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the part of the go-openai client used by Querier.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req go_openai.ChatCompletionRequest) (*go_openai.ChatCompletionStream, error)
}

// Querier sends conversations to the OpenAI chat completion API.
type Querier struct {
	client   ChatClient
	settings *settings.Settings
}

var _ chat.Querier = (*Querier)(nil)

func NewQuerier(s *settings.Settings) (*Querier, error) {
	client, err := MakeClient(s)
	if err != nil {
		return nil, err
	}
	return NewQuerierWithClient(client, s), nil
}

func NewQuerierWithClient(client ChatClient, s *settings.Settings) *Querier {
	return &Querier{
		client:   client,
		settings: s,
	}
}

func MakeClient(s *settings.Settings) (*go_openai.Client, error) {
	if s.APIKey == "" {
		return nil, errors.New("no OpenAI API key (set --openai-api-key or OPENAI_API_KEY)")
	}
	config := go_openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		config.BaseURL = s.BaseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

func MakeCompletionRequest(s *settings.Settings, conv conversation.Conversation) go_openai.ChatCompletionRequest {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(conv))
	for _, msg := range conv {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	req := go_openai.ChatCompletionRequest{
		Model:    s.Model,
		Messages: msgs,
		Stream:   s.Stream,
	}
	if s.Temperature != nil {
		req.Temperature = float32(*s.Temperature)
		// go-openai omits a zero temperature, which would mean the server default
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	return req
}

func (q *Querier) Query(ctx context.Context, conv conversation.Conversation) (chat.Reply, error) {
	req := MakeCompletionRequest(q.settings, conv)

	log.Debug().
		Str("model", req.Model).
		Bool("stream", req.Stream).
		Int("messages", len(req.Messages)).
		Msg("sending chat completion request")

	if !req.Stream {
		resp, err := q.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return chat.Reply{}, err
			}
			return chat.Reply{}, chat.NewReplyError("openai", err)
		}
		if len(resp.Choices) == 0 {
			return chat.Reply{}, chat.NewReplyError("openai", errors.New("response contained no choices"))
		}
		content := resp.Choices[0].Message.Content
		return chat.Complete(conversation.NewChatMessage(conversation.RoleAssistant, content)), nil
	}

	stream, err := q.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return chat.Reply{}, err
		}
		return chat.Reply{}, chat.NewReplyError("openai", err)
	}

	c := make(chan helpers.Result[string])
	go func() {
		defer close(c)
		defer stream.Close()

		send := func(r helpers.Result[string]) bool {
			select {
			case c <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		message := ""
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					send(helpers.NewErrorResult[string](err))
					return
				}
				send(helpers.NewErrorResult[string](chat.NewReplyError("openai stream", err)))
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			message += delta
			if !send(helpers.NewValueResult(message)) {
				return
			}
		}
	}()

	return chat.Partial(c), nil
}

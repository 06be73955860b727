package tokens

import (
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// per-message framing overhead of the chat format
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// GetCodec returns the codec for model, falling back to cl100k_base for
// models the tokenizer does not know.
func GetCodec(model string) (tokenizer.Codec, error) {
	if model != "" {
		c, err := tokenizer.ForModel(tokenizer.Model(model))
		if err == nil {
			return c, nil
		}
	}
	c, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "error creating tokenizer")
	}
	return c, nil
}

type MessageCount struct {
	Message conversation.Message
	Tokens  int
}

type Count struct {
	Model    string
	Messages []MessageCount
	// Total includes the chat format overhead on top of the message contents.
	Total int
}

func CountConversation(model string, conv conversation.Conversation) (*Count, error) {
	codec, err := GetCodec(model)
	if err != nil {
		return nil, err
	}

	ret := &Count{
		Model:    model,
		Messages: make([]MessageCount, 0, len(conv)),
	}
	for _, msg := range conv {
		ids, _, err := codec.Encode(msg.Content)
		if err != nil {
			return nil, errors.Wrap(err, "error encoding message")
		}
		ret.Messages = append(ret.Messages, MessageCount{Message: msg, Tokens: len(ids)})
		ret.Total += len(ids) + tokensPerMessage
	}
	if len(conv) > 0 {
		ret.Total += tokensPerReply
	}
	return ret, nil
}

// CountText counts the tokens of text alone, without chat framing.
func CountText(model, text string) (int, error) {
	codec, err := GetCodec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "error encoding input")
	}
	return len(ids), nil
}

package session

import (
	"bytes"
	"encoding/json"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EncodeYAMLConversation renders a conversation as a YAML list of role/content records.
func EncodeYAMLConversation(conv conversation.Conversation) ([]byte, error) {
	if conv == nil {
		conv = conversation.Conversation{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(conv); err != nil {
		return nil, errors.Wrap(err, "could not encode conversation")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "could not encode conversation")
	}
	return buf.Bytes(), nil
}

func DecodeYAMLConversation(data []byte) (conversation.Conversation, error) {
	conv := conversation.Conversation{}
	if len(bytes.TrimSpace(data)) == 0 {
		return conv, nil
	}
	if err := yaml.Unmarshal(data, &conv); err != nil {
		return nil, errors.Wrap(err, "could not decode conversation")
	}
	if err := conv.Validate(); err != nil {
		return nil, &ValidationError{Field: "conversation", Reason: err.Error()}
	}
	return conv, nil
}

func EncodeJSONConversation(conv conversation.Conversation) ([]byte, error) {
	if conv == nil {
		conv = conversation.Conversation{}
	}
	b, err := json.Marshal(conv)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode conversation")
	}
	return b, nil
}

func DecodeJSONConversation(data []byte) (conversation.Conversation, error) {
	conv := conversation.Conversation{}
	if len(bytes.TrimSpace(data)) == 0 {
		return conv, nil
	}
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, errors.Wrap(err, "could not decode conversation")
	}
	if err := conv.Validate(); err != nil {
		return nil, &ValidationError{Field: "conversation", Reason: err.Error()}
	}
	return conv, nil
}

package conversation

import (
	"fmt"

	"github.com/huandu/go-clone"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleAssistant, RoleUser:
		return true
	default:
		return false
	}
}

// Message is a single turn of a dialogue. Messages are values and are never
// mutated once they are part of a Conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func NewChatMessage(role Role, content string) Message {
	return Message{
		Role:    role,
		Content: content,
	}
}

func (m Message) String() string {
	return m.Content
}

// Conversation is the ordered list of messages of one dialogue.
type Conversation []Message

func NewConversation(msgs ...Message) Conversation {
	ret := make(Conversation, 0, len(msgs))
	return append(ret, msgs...)
}

// Last returns the final message and false if the conversation is empty.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// Tail returns the last n messages, or the whole conversation if it is shorter.
func (c Conversation) Tail(n int) Conversation {
	if n <= 0 {
		return Conversation{}
	}
	if n >= len(c) {
		return c
	}
	return c[len(c)-n:]
}

func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	return clone.Clone(c).(Conversation)
}

// Validate checks that every message carries a known role.
func (c Conversation) Validate() error {
	for idx, msg := range c {
		if !msg.Role.IsValid() {
			return fmt.Errorf("message %d has unknown role %q", idx, msg.Role)
		}
	}
	return nil
}

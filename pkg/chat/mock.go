package chat

import (
	"context"
	"sync"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/helpers"
)

// MockQuerier replays canned replies in order, wrapping around at the end.
// When Stream is set, each reply is sent as a series of growing prefixes,
// one word at a time. It records every conversation it was asked about.
type MockQuerier struct {
	mu       sync.Mutex
	replies  []string
	index    int
	Stream   bool
	Err      error
	Received []conversation.Conversation
}

var _ Querier = (*MockQuerier)(nil)

func NewMockQuerier(replies ...string) *MockQuerier {
	return &MockQuerier{replies: replies}
}

func (m *MockQuerier) Query(_ context.Context, conv conversation.Conversation) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Received = append(m.Received, conv.Clone())
	if m.Err != nil {
		return Reply{}, m.Err
	}

	text := ""
	if len(m.replies) > 0 {
		text = m.replies[m.index%len(m.replies)]
		m.index++
	}

	if !m.Stream {
		return Complete(conversation.NewChatMessage(conversation.RoleAssistant, text)), nil
	}
	return Partial(helpers.SliceChannel(prefixes(text)...)), nil
}

// prefixes splits text at word boundaries into cumulative snapshots.
func prefixes(text string) []string {
	var ret []string
	for i := 1; i < len(text); i++ {
		if text[i] == ' ' {
			ret = append(ret, text[:i])
		}
	}
	if text != "" {
		ret = append(ret, text)
	}
	return ret
}

package session

import (
	"context"
	"sort"
	"sync"

	"github.com/go-go-golems/palaver/pkg/conversation"
)

// InMemoryStore is a thread-safe Store that keeps everything in a map.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]conversation.Conversation
	closed   bool
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: map[string]conversation.Conversation{},
	}
}

func (s *InMemoryStore) Load(_ context.Context, name string) (conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	conv, ok := s.sessions[name]
	if !ok {
		return conversation.Conversation{}, nil
	}
	return conv.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, conv conversation.Conversation, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if conv == nil {
		conv = conversation.Conversation{}
	}
	s.sessions[name] = conv.Clone()
	return nil
}

func (s *InMemoryStore) ResolvePath(name string, requireExists bool) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if requireExists {
		if _, ok := s.sessions[name]; !ok {
			return "", false
		}
	}
	return "memory://" + name, true
}

func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *InMemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, ok := s.sessions[name]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, name)
	return nil
}

func (s *InMemoryStore) Rename(_ context.Context, oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	conv, ok := s.sessions[oldName]
	if !ok {
		return ErrSessionNotFound
	}
	if oldName == newName {
		return nil
	}
	s.sessions[newName] = conv
	delete(s.sessions, oldName)
	return nil
}

func (s *InMemoryStore) Dump(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	conv, ok := s.sessions[name]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return EncodeYAMLConversation(conv)
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *InMemoryStore) ensureOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

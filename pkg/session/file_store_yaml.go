package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const yamlSessionExtension = ".yaml"

// YAMLFileStore keeps one YAML file per session inside a directory.
type YAMLFileStore struct {
	mu     sync.RWMutex
	dir    string
	closed bool
}

var _ Store = (*YAMLFileStore)(nil)

// NewYAMLFileStore does not create dir; it is created on the first write.
func NewYAMLFileStore(dir string) (*YAMLFileStore, error) {
	if dir == "" {
		return nil, errors.New("yaml session store directory is required")
	}
	return &YAMLFileStore{dir: dir}, nil
}

func (s *YAMLFileStore) pathFor(name string) string {
	return filepath.Join(s.dir, name+yamlSessionExtension)
}

func (s *YAMLFileStore) Load(_ context.Context, name string) (conversation.Conversation, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	path := s.pathFor(name)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("session", name).Str("path", path).Msg("session not found, starting empty")
			return conversation.Conversation{}, nil
		}
		return nil, errors.Wrapf(err, "could not read session %s", name)
	}

	conv, err := DecodeYAMLConversation(b)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load session %s from %s", name, path)
	}
	log.Debug().Str("session", name).Int("messages", len(conv)).Msg("loaded session")
	return conv, nil
}

func (s *YAMLFileStore) Save(_ context.Context, conv conversation.Conversation, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	b, err := EncodeYAMLConversation(conv)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "could not create session directory")
	}
	path := s.pathFor(name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		return errors.Wrapf(err, "could not write session %s", name)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "could not write session %s", name)
	}

	log.Debug().Str("session", name).Str("path", path).Int("messages", len(conv)).Msg("saved session")
	return nil
}

func (s *YAMLFileStore) ResolvePath(name string, requireExists bool) (string, bool) {
	if ValidateName(name) != nil {
		return "", false
	}
	path := s.pathFor(name)
	if requireExists {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return "", false
		}
	}
	return path, true
}

func (s *YAMLFileStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "could not list sessions")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if !strings.HasSuffix(fileName, yamlSessionExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(fileName, yamlSessionExtension))
	}
	sort.Strings(names)
	return names, nil
}

func (s *YAMLFileStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	if err := os.Remove(s.pathFor(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return errors.Wrapf(err, "could not delete session %s", name)
	}
	return nil
}

func (s *YAMLFileStore) Rename(_ context.Context, oldName, newName string) error {
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	oldPath := s.pathFor(oldName)
	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return errors.Wrapf(err, "could not stat session %s", oldName)
	}
	if err := os.Rename(oldPath, s.pathFor(newName)); err != nil {
		return errors.Wrapf(err, "could not rename session %s to %s", oldName, newName)
	}
	return nil
}

func (s *YAMLFileStore) Dump(_ context.Context, name string) ([]byte, error) {
	path, ok := s.ResolvePath(name, true)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read session %s", name)
	}
	return b, nil
}

func (s *YAMLFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *YAMLFileStore) ensureOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

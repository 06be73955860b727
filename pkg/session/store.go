package session

import (
	"context"
	"strings"

	"github.com/go-go-golems/palaver/pkg/conversation"
)

// Store maps session names to conversations.
//
// Load never fails for a session that does not exist, it returns an empty
// conversation instead. Delete, Rename and Dump report ErrSessionNotFound.
// There is no locking across processes: two writers on the same session race
// and the last one wins.
type Store interface {
	Load(ctx context.Context, name string) (conversation.Conversation, error)
	Save(ctx context.Context, conv conversation.Conversation, name string) error
	// ResolvePath returns where name is stored. With requireExists, it returns
	// false when nothing is stored under name yet.
	ResolvePath(name string, requireExists bool) (string, bool)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, oldName, newName string) error
	// Dump returns the raw persisted representation of a session.
	Dump(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// ValidateName rejects names that cannot be mapped to a storage location.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Field: "session", Reason: "name is empty"}
	case name == "." || name == "..":
		return &ValidationError{Field: "session", Reason: "name must not be '.' or '..'"}
	case strings.ContainsAny(name, `/\`):
		return &ValidationError{Field: "session", Reason: "name must not contain path separators"}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Field: "session", Reason: "name must not contain NUL"}
	}
	return nil
}

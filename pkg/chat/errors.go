package chat

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrPromptForExistingSession = errors.New("refusing to prepend prompt to existing session")
	ErrNothingToDo              = errors.New("no query or option given. nothing to do...")
	ErrUnknownReplyKind         = errors.New("unknown reply kind")
)

// ReplyError wraps failures of the reply producer (transport, API, decoding).
// It is reported to the user as a warning and never retried.
type ReplyError struct {
	Op  string
	Err error
}

func NewReplyError(op string, err error) *ReplyError {
	return &ReplyError{Op: op, Err: err}
}

func (e *ReplyError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("reply failed: %v", e.Err)
	}
	return fmt.Sprintf("reply failed (%s): %v", e.Op, e.Err)
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}

// IsReplyError reports whether err is or wraps a *ReplyError.
func IsReplyError(err error) bool {
	var re *ReplyError
	return errors.As(err, &re)
}

package cmds

import (
	"context"

	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const exitInterrupted = 130

// ExitCode maps the error returned by a command to the process exit status,
// warning about it on the way. Nothing to do is not a failure.
func ExitCode(err error, warn func(string)) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, chat.ErrNothingToDo):
		warn(err.Error())
		return 0
	case chat.IsReplyError(err):
		log.Debug().Err(err).Msg("reply failed")
		warn(err.Error())
		return 1
	default:
		warn(err.Error())
		return 1
	}
}

package cmds

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/palaver/pkg/printer"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env is what every command works with: the settings, the opened store and a
// printer writing to the command's output streams.
type env struct {
	settings *settings.Settings
	store    session.Store
	printer  *printer.Printer
}

func newEnv(out, errOut io.Writer, opts printer.Options) (*env, error) {
	s, err := settings.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	opts.Model = s.Model

	store, err := session.NewStoreFromSettings(s)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("backend", s.StoreBackend).
		Str("model", s.Model).
		Bool("stream", s.Stream).
		Msg("settings loaded")

	return &env{
		settings: s,
		store:    store,
		printer:  printer.NewPrinter(out, errOut, opts),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		log.Warn().Err(err).Msg("could not close session store")
	}
}

// migrateLegacy moves an old style cache file into the target session. It
// reports whether a legacy file was found, in which case the command must stop
// after the migration, whatever its outcome.
func (e *env) migrateLegacy(ctx context.Context, target string) (bool, error) {
	m := session.NewMigratorFromSettings(e.settings, e.store)
	if !m.LegacyExists() {
		return false, nil
	}

	e.printer.Warn("old style cache file detected")
	if target != "" && target != e.settings.ScratchSession {
		e.printer.Warnf("attempting to migrate old cache to session '%s'...", target)
	}
	if _, err := m.Migrate(ctx, target); err != nil {
		return true, err
	}
	e.printer.Warn("done.")
	return true, nil
}

// withEnv runs fn with a fresh env, after giving the legacy migration a chance
// to run for the session named by --session.
func withEnv(
	ctx context.Context,
	out, errOut io.Writer,
	opts printer.Options,
	fn func(ctx context.Context, e *env) error,
) error {
	e, err := newEnv(out, errOut, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	migrated, err := e.migrateLegacy(ctx, viper.GetString("session"))
	if migrated {
		return err
	}

	return fn(ctx, e)
}

func withCommandEnv(cmd *cobra.Command, opts printer.Options, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return withEnv(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, fn)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// buildQuery joins the query words and, when stdin is piped, appends the
// piped text on its own line.
func buildQuery(args []string, stdin io.Reader) (string, error) {
	query := strings.Join(args, " ")
	if stdin == nil {
		return query, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", errors.Wrap(err, "could not read query from stdin")
	}
	piped := strings.TrimSpace(string(data))
	switch {
	case piped == "":
		return query, nil
	case query == "":
		return piped, nil
	default:
		return query + "\n" + piped, nil
	}
}

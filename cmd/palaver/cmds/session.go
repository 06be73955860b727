package cmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/palaver/pkg/printer"
	"github.com/go-go-golems/palaver/pkg/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored sessions",
	}

	listCmd, err := NewSessionListCommand()
	cobra.CheckErr(err)
	listCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(listCmd)
	cobra.CheckErr(err)
	cmd.AddCommand(listCobraCmd)

	cmd.AddCommand(newSessionPathCommand())
	cmd.AddCommand(newSessionDumpCommand())
	cmd.AddCommand(newSessionDeleteCommand())
	cmd.AddCommand(newSessionRenameCommand())

	return cmd
}

type SessionListCommand struct {
	*cmds.CommandDescription
	errOut io.Writer
}

func NewSessionListCommand() (*SessionListCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &SessionListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("List all sessions"),
			cmds.WithLayersList(glazedParameterLayer),
		),
		errOut: os.Stderr,
	}, nil
}

var _ cmds.GlazeCommand = (*SessionListCommand)(nil)

func (c *SessionListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	_ *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	// rows go to gp, only the migration warnings use the printer
	return withEnv(ctx, io.Discard, c.errOut, printer.Options{}, func(ctx context.Context, e *env) error {
		return listSessions(ctx, e.store, gp)
	})
}

// listSessions emits one row per session, in the order the store lists them.
func listSessions(ctx context.Context, store session.Store, gp middlewares.Processor) error {
	names, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		path, _ := store.ResolvePath(name, true)
		row := types.NewRow(
			types.MRP("name", name),
			types.MRP("path", path),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func newSessionPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path NAME",
		Short: "Print where a session is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCommandEnv(cmd, printer.Options{}, func(ctx context.Context, e *env) error {
				if err := session.ValidateName(args[0]); err != nil {
					return err
				}
				path, ok := e.store.ResolvePath(args[0], true)
				if !ok {
					return session.ErrSessionNotFound
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func newSessionDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump NAME",
		Short: "Print the stored content of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCommandEnv(cmd, printer.Options{}, func(ctx context.Context, e *env) error {
				data, err := e.store.Dump(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

func newSessionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCommandEnv(cmd, printer.Options{}, func(ctx context.Context, e *env) error {
				return e.store.Delete(ctx, args[0])
			})
		},
	}
}

func newSessionRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a session, replacing any session already called NEW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCommandEnv(cmd, printer.Options{}, func(ctx context.Context, e *env) error {
				return e.store.Rename(ctx, args[0], args[1])
			})
		},
	}
}

package cmds

import (
	"context"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/palaver/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Tokenizer helpers",
	}

	countCmd, err := NewCountCommand()
	cobra.CheckErr(err)
	countCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(countCmd)
	cobra.CheckErr(err)
	cmd.AddCommand(countCobraCmd)

	return cmd
}

type CountSettings struct {
	Model string   `glazed.parameter:"model"`
	Files []string `glazed.parameter:"files"`
}

type CountCommand struct {
	*cmds.CommandDescription
	stdin io.Reader
}

func NewCountCommand() (*CountCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &CountCommand{
		CommandDescription: cmds.NewCommandDescription(
			"count",
			cmds.WithShort("Count the tokens of files, or of stdin when no file is given"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"model",
					parameters.ParameterTypeString,
					parameters.WithHelp("Model used for encoding"),
					parameters.WithDefault("gpt-4"),
				),
			),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"files",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Input files"),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
		stdin: os.Stdin,
	}, nil
}

var _ cmds.GlazeCommand = (*CountCommand)(nil)

func (c *CountCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &CountSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}
	return c.count(ctx, s, gp)
}

func (c *CountCommand) count(ctx context.Context, s *CountSettings, gp middlewares.Processor) error {
	if len(s.Files) == 0 {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return errors.Wrap(err, "could not read stdin")
		}
		return addCountRow(ctx, gp, s.Model, "-", string(data))
	}

	for _, file := range s.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "could not read %s", file)
		}
		if err := addCountRow(ctx, gp, s.Model, file, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func addCountRow(ctx context.Context, gp middlewares.Processor, model, source, text string) error {
	count, err := tokens.CountText(model, text)
	if err != nil {
		return err
	}
	return gp.AddRow(ctx, types.NewRow(
		types.MRP("source", source),
		types.MRP("model", model),
		types.MRP("tokens", count),
	))
}

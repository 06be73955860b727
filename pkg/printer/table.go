package printer

import (
	"context"
	"io"

	"github.com/go-go-golems/glazed/pkg/formatters/table"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
)

// WriteTable runs rows through a glazed table processor and renders the
// result as an ascii table, keeping the given column order.
func WriteTable(ctx context.Context, w io.Writer, columns []types.FieldName, rows ...types.Row) error {
	gp := middlewares.NewTableProcessor()
	for _, row := range rows {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	if err := gp.Close(ctx); err != nil {
		return err
	}

	t := gp.GetTable()
	t.Columns = columns

	of := table.NewOutputFormatter("ascii")
	if err := of.OutputTable(ctx, t, w); err != nil {
		return errors.Wrap(err, "could not render table")
	}
	return nil
}

// Package views provides the views command listing the available insight views
package views

import (
	"io"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"
	insight "github.com/tphakala/birdobs/internal/views"
)

// Command creates and returns the views command
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the insight views and the columns their tables need",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			Write(cmd.OutOrStdout(), insight.List())
		},
	}
}

// Write prints one row per summary table, the view named on its first row
func Write(w io.Writer, defs []insight.Definition) {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Options.SeparateRows = true
	t.AppendHeader(prettytable.Row{"View", "Table", "Title", "Columns"})

	for _, def := range defs {
		for i, spec := range def.Tables {
			view := ""
			if i == 0 {
				view = def.ID
			}
			t.AppendRow(prettytable.Row{view, spec.Name, spec.Title, columns(spec)})
		}
	}
	t.Render()
}

func columns(spec insight.TableSpec) string {
	out := strings.Join(spec.Required, ", ")
	if len(spec.AnyOf) > 0 {
		if out != "" {
			out += ", "
		}
		out += "one of " + strings.Join(spec.AnyOf, "|")
	}
	return out
}

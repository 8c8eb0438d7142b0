package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/rowmap/internal/cli/ui"
	ustrings "github.com/conduit-lang/rowmap/internal/util/strings"
)

// columnName is the convention-derived mapping of one property or type name
type columnName struct {
	Property string `json:"property" yaml:"property"`
	Column   string `json:"column" yaml:"column"`
	Table    string `json:"table" yaml:"table"`
}

func newColumnsCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "columns <Name>...",
		Short: "Show the column and table names derived from Go names",
		Long: `Prints the snake_case column name a property maps to when it carries no db
tag, and the table name derived for a type of the same name. A property
named Class is never mapped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}

			names := make([]columnName, len(args))
			for i, arg := range args {
				names[i] = deriveColumnName(arg)
			}

			out := cmd.OutOrStdout()
			if format != formatTable {
				return writeStructured(out, format, names)
			}
			table := ui.NewTable(out, []string{"Property", "Column", "Table"}, &ui.TableOptions{NoColor: a.noColor})
			for _, n := range names {
				column := n.Column
				if column == "" {
					column = "<not mapped>"
				}
				table.AddRow(n.Property, column, n.Table)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table, json, yaml)")
	return cmd
}

func deriveColumnName(name string) columnName {
	name = strings.TrimSpace(name)
	column := ustrings.ToSnakeCase(name)
	if column == "class" {
		column = ""
	}
	return columnName{Property: name, Column: column, Table: ustrings.ToTableName(name)}
}

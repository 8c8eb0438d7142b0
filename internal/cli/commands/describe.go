package commands

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/cli/ui"
	"github.com/conduit-lang/rowmap/internal/orm/mapping"
	ustrings "github.com/conduit-lang/rowmap/internal/util/strings"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// columnInfo is one result-set column as the row mapper sees it
type columnInfo struct {
	Column       string `json:"column" yaml:"column"`
	DatabaseType string `json:"database_type" yaml:"database_type"`
	ScanType     string `json:"scan_type" yaml:"scan_type"`
	Property     string `json:"property" yaml:"property"`
	Container    string `json:"container_key" yaml:"container_key"`
}

func newDescribeCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the result-set columns of a table",
		Long: `Runs an empty SELECT against the configured database and prints the column
descriptors the row mapper consumes: the column name, the driver's database
type, the Go scan type, the property name derived from the column and the key
used for unmapped columns in a property container.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), a.cfg)
			if err != nil {
				return a.report(ui.DatabaseError(err, a.noColor), err)
			}
			defer db.Close()

			columns, err := describeTable(cmd.Context(), db, args[0])
			if err != nil {
				return a.report(ui.DatabaseError(err, a.noColor), err)
			}
			a.logger.Debug("described table", zap.String("table", args[0]), zap.Int("columns", len(columns)))

			out := cmd.OutOrStdout()
			if format != formatTable {
				return writeStructured(out, format, columns)
			}
			if len(columns) == 0 {
				ui.Warning(fmt.Sprintf("table %s has no columns", args[0]), a.noColor).Write(out)
				return nil
			}
			table := ui.NewTable(out, []string{"Column", "Database type", "Scan type", "Property", "Container key"}, &ui.TableOptions{NoColor: a.noColor})
			for _, c := range columns {
				table.AddRow(c.Column, c.DatabaseType, c.ScanType, c.Property, c.Container)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table, json, yaml)")
	return cmd
}

// describeTable reads the column descriptors of an empty result set over table
func describeTable(ctx context.Context, db *sql.DB, table string) ([]columnInfo, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+table+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	descriptors, err := mapping.DescribeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	columns := make([]columnInfo, len(descriptors))
	for i, d := range descriptors {
		scanType := "<unknown>"
		if d.ScanType != nil {
			scanType = d.ScanType.String()
		}
		columns[i] = columnInfo{
			Column:       d.Name,
			DatabaseType: d.DatabaseType,
			ScanType:     scanType,
			Property:     ustrings.ToPascalCase(d.Name),
			Container:    ustrings.ToCamelCase(d.Name),
		}
	}
	return columns, rows.Err()
}

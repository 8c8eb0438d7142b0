package commands

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/rowmap/internal/cli/ui"
	"github.com/conduit-lang/rowmap/internal/orm/convert"
)

// conversionTargets are the types reachable from text through the baseline converters
var conversionTargets = map[string]reflect.Type{
	"string":  reflect.TypeOf(""),
	"bool":    reflect.TypeOf(false),
	"int":     reflect.TypeOf(int(0)),
	"int8":    reflect.TypeOf(int8(0)),
	"int16":   reflect.TypeOf(int16(0)),
	"int32":   reflect.TypeOf(int32(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"uint":    reflect.TypeOf(uint(0)),
	"uint8":   reflect.TypeOf(uint8(0)),
	"uint16":  reflect.TypeOf(uint16(0)),
	"uint32":  reflect.TypeOf(uint32(0)),
	"uint64":  reflect.TypeOf(uint64(0)),
	"float32": reflect.TypeOf(float32(0)),
	"float64": reflect.TypeOf(float64(0)),
	"bytes":   reflect.TypeOf([]byte(nil)),
	"decimal": reflect.TypeOf(decimal.Decimal{}),
	"uuid":    reflect.TypeOf(uuid.UUID{}),
	"time":    reflect.TypeOf(time.Time{}),
	"date":    reflect.TypeOf(convert.Date{}),
	"json":    reflect.TypeOf(map[string]interface{}(nil)),
}

func targetNames() []string {
	names := make([]string, 0, len(conversionTargets))
	for name := range conversionTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// conversionResult is the outcome of one conversion
type conversionResult struct {
	Input  string      `json:"input" yaml:"input"`
	Target string      `json:"target" yaml:"target"`
	Type   string      `json:"type" yaml:"type"`
	Value  interface{} `json:"value" yaml:"value"`
	Text   string      `json:"text" yaml:"text"`
}

func newConvertCommand(a *app) *cobra.Command {
	var (
		to     string
		format string
	)

	cmd := &cobra.Command{
		Use:   "convert <value>",
		Short: "Convert a text value through the converter registry",
		Long: fmt.Sprintf(`Converts a text value the way the row mapper converts a driver value into a
property of the target type. Date parsing honors mapping.date_layouts.

Targets: %s`, strings.Join(targetNames(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			target, ok := conversionTargets[strings.ToLower(to)]
			if !ok {
				err := fmt.Errorf("unknown conversion target %q", to)
				return a.report(ui.UnknownTypeError(to, targetNames(), a.noColor), err)
			}

			value, err := a.engine.Convert(args[0], target)
			if err != nil {
				return fmt.Errorf("cannot convert %q to %s: %w", args[0], to, err)
			}

			result := conversionResult{
				Input:  args[0],
				Target: strings.ToLower(to),
				Type:   target.String(),
				Value:  value,
				Text:   renderValue(value),
			}

			out := cmd.OutOrStdout()
			if format != formatTable {
				return writeStructured(out, format, result)
			}
			table := ui.NewKeyValueTable(out, a.noColor)
			table.AddRow("Input", result.Input)
			table.AddRow("Target", result.Target)
			table.AddRow("Go type", result.Type)
			table.AddRow("Value", result.Text)
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&to, "to", "t", "string", "conversion target")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table, json, yaml)")
	return cmd
}

// renderValue formats a converted value; nil renders as <null>
func renderValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "<null>"
	case []byte:
		return fmt.Sprintf("%q", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

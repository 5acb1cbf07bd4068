package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
)

const defaultJSONIndent = 2

// render writes data as JSON or YAML, or as the table fill builds.
func render(out io.Writer, data interface{}, fill func(table *tablewriter.Table)) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return encoder.Encode(data)
	case constants.FormatYAML:
		return yaml.NewEncoder(out).Encode(data)
	default:
		table := tablewriter.NewWriter(out)
		fill(table)

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func valueOrNA(value *string) string {
	if value == nil || *value == "" {
		return notAvailable
	}

	return *value
}

func joinOrNA(values []string) string {
	if len(values) == 0 {
		return notAvailable
	}

	return strings.Join(values, ", ")
}

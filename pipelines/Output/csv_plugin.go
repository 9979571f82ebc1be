package Output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/annolab-ml/annolab-go/pipelines"
)

// CSVPlugin writes tabular data from the pipeline context to a
// delimiter-separated file. It is the inverse of the Input csv plugin: a
// table written here reads back with identical columns and cell values.
type CSVPlugin struct {
	name    string
	version string
}

// NewCSVPlugin creates a new CSV output plugin instance
func NewCSVPlugin() *CSVPlugin {
	return &CSVPlugin{
		name:    "csv",
		version: "1.0.0",
	}
}

// ExecuteStep writes the configured context value as a tabular file
func (p *CSVPlugin) ExecuteStep(ctx context.Context, stepConfig pipelines.StepConfig, globalContext *pipelines.PluginContext) (*pipelines.PluginContext, error) {
	config := stepConfig.Config

	if err := p.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	filePath := config["file_path"].(string)
	inputKey := config["input"].(string)

	value, exists := globalContext.Get(inputKey)
	if !exists {
		return nil, fmt.Errorf("context key %q not found", inputKey)
	}

	table, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context key %q is not tabular data", inputKey)
	}

	columns, ok := table["columns"].([]string)
	if !ok {
		return nil, fmt.Errorf("tabular data under %q missing columns", inputKey)
	}
	rows, ok := table["rows"].([]map[string]any)
	if !ok {
		return nil, fmt.Errorf("tabular data under %q missing rows", inputKey)
	}

	delimiter := defaultDelimiter(filePath)
	if d, ok := config["delimiter"].(string); ok && len(d) == 1 {
		delimiter = rune(d[0])
	}

	if err := writeTable(filePath, delimiter, columns, rows); err != nil {
		return nil, err
	}

	result := map[string]any{
		"file_path": filePath,
		"row_count": len(rows),
		"columns":   columns,
	}

	output := pipelines.NewPluginContext()
	output.Set(stepConfig.Output, result)
	return output, nil
}

// writeTable writes the header and rows to the target file
func writeTable(filePath string, delimiter rune, columns []string, rows []map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = delimiter

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range rows {
		for j, column := range columns {
			record[j] = cellString(row[column])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

func cellString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// defaultDelimiter picks tab for .tsv files and comma otherwise
func defaultDelimiter(filePath string) rune {
	if strings.EqualFold(filepath.Ext(filePath), ".tsv") {
		return '\t'
	}
	return ','
}

// GetPluginType returns the plugin type
func (p *CSVPlugin) GetPluginType() string {
	return "Output"
}

// GetPluginName returns the plugin name
func (p *CSVPlugin) GetPluginName() string {
	return p.name
}

// ValidateConfig validates the plugin configuration
func (p *CSVPlugin) ValidateConfig(config map[string]any) error {
	filePath, ok := config["file_path"].(string)
	if !ok || filePath == "" {
		return fmt.Errorf("file_path is required in config")
	}
	inputKey, ok := config["input"].(string)
	if !ok || inputKey == "" {
		return fmt.Errorf("input is required in config")
	}
	if d, ok := config["delimiter"].(string); ok && len(d) != 1 {
		return fmt.Errorf("delimiter must be a single character, got: %q", d)
	}
	return nil
}

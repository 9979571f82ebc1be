package Input

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/annolab-ml/annolab-go/pipelines"
	ml "github.com/annolab-ml/annolab-go/pipelines/ML"
)

// CSVPlugin reads delimiter-separated tabular files (CSV and TSV) into the
// pipeline context. A header row is required; configured required columns
// are validated up front so schema violations fail the stage before any
// downstream work runs.
type CSVPlugin struct {
	name    string
	version string
}

// NewCSVPlugin creates a new CSV plugin instance
func NewCSVPlugin() *CSVPlugin {
	return &CSVPlugin{
		name:    "csv",
		version: "1.0.0",
	}
}

// ExecuteStep reads and parses a tabular file
func (p *CSVPlugin) ExecuteStep(ctx context.Context, stepConfig pipelines.StepConfig, globalContext *pipelines.PluginContext) (*pipelines.PluginContext, error) {
	config := stepConfig.Config

	if err := p.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	filePath := config["file_path"].(string)

	delimiter := defaultDelimiter(filePath)
	if d, ok := config["delimiter"].(string); ok && len(d) == 1 {
		delimiter = rune(d[0])
	}

	var requiredColumns []string
	if raw, ok := config["required_columns"].([]string); ok {
		requiredColumns = raw
	} else if raw, ok := config["required_columns"].([]any); ok {
		for _, col := range raw {
			if s, ok := col.(string); ok {
				requiredColumns = append(requiredColumns, s)
			}
		}
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	data, err := p.parseTable(filePath, delimiter, requiredColumns)
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"file_path":    filePath,
		"delimiter":    string(delimiter),
		"row_count":    data.RowCount,
		"column_count": data.ColumnCount,
		"columns":      data.Columns,
		"rows":         data.Rows,
		"parsed_at":    data.ParsedAt,
	}

	output := pipelines.NewPluginContext()
	output.Set(stepConfig.Output, result)
	return output, nil
}

// TableData represents a parsed tabular file
type TableData struct {
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	ColumnCount int              `json:"column_count"`
	RowCount    int              `json:"row_count"`
	ParsedAt    string           `json:"parsed_at"`
}

// parseTable reads the file and checks the required columns
func (p *CSVPlugin) parseTable(filePath string, delimiter rune, requiredColumns []string) (*TableData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}

	if len(records) == 0 {
		return nil, &ml.SchemaError{Column: "*", Reason: "file has no header row"}
	}

	header := records[0]
	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.TrimSpace(name)] = i
	}

	for _, required := range requiredColumns {
		if _, exists := columnIndex[required]; !exists {
			return nil, &ml.SchemaError{Column: required, Reason: fmt.Sprintf("missing from header of %s", filepath.Base(filePath))}
		}
	}

	rows := make([]map[string]any, 0, len(records)-1)
	for rowIdx, record := range records[1:] {
		if len(record) != len(header) {
			return nil, &ml.SchemaError{Column: "*", Reason: fmt.Sprintf("row %d has %d cells, header has %d", rowIdx, len(record), len(header))}
		}
		row := make(map[string]any, len(header))
		for name, idx := range columnIndex {
			row[name] = record[idx]
		}
		rows = append(rows, row)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	return &TableData{
		Columns:     columns,
		Rows:        rows,
		ColumnCount: len(columns),
		RowCount:    len(rows),
		ParsedAt:    time.Now().Format(time.RFC3339),
	}, nil
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
	return "Input"
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
	if d, ok := config["delimiter"].(string); ok && len(d) != 1 {
		return fmt.Errorf("delimiter must be a single character, got: %q", d)
	}
	return nil
}

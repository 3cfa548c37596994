// Package catalog parses uploaded product catalogs and produces LLM-backed
// recommendation summaries over them.
package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedType indicates a file extension outside the accepted set.
var ErrUnsupportedType = errors.New("unsupported file type")

// Table is a parsed catalog: ordered column names plus one value map per row.
// All cell values are carried as strings regardless of source format.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// ParseFile reads a catalog file by extension. Supported formats are .csv,
// .xls/.xlsx and .json (an array of flat objects).
func ParseFile(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseCSV(path)
	case ".xls", ".xlsx":
		return parseXLSX(path)
	case ".json":
		return parseJSON(path)
	default:
		return nil, ErrUnsupportedType
	}
}

func parseCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	return tableFromRecords(records), nil
}

func parseXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	return tableFromRecords(records), nil
}

func parseJSON(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	decoder.UseNumber()

	var objects []map[string]interface{}
	if err := decoder.Decode(&objects); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	// JSON objects carry no column order, so columns are sorted for a
	// stable rendering.
	seen := make(map[string]bool)
	var columns []string
	for _, obj := range objects {
		for key := range obj {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	table := &Table{Columns: columns}
	for _, obj := range objects {
		row := make(map[string]string, len(obj))
		for key, val := range obj {
			row[key] = stringifyJSONValue(val)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func tableFromRecords(records [][]string) *Table {
	table := &Table{Columns: records[0]}
	for _, record := range records[1:] {
		row := make(map[string]string, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func stringifyJSONValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is a machine-oriented description of the auxiliary CSV dataset. It is
// what gets compressed and injected into the model instructions, so column
// names must match the source file exactly.
type Schema struct {
	Table      string     `json:"table"`
	Columns    []Column   `json:"columns"`
	RowCount   int        `json:"row_count"`
	SampleRows [][]string `json:"sample_rows"`
}

const sampleRowLimit = 5

// Load reads the CSV file once at startup and infers a column type from the
// values observed in each position.
func Load(path, table string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset csv failed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset csv failed: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset csv %s is empty", path)
	}

	header := records[0]
	rows := records[1:]

	columns := make([]Column, len(header))
	for i, name := range header {
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			if i < len(row) && row[i] != "" {
				values = append(values, row[i])
			}
		}
		columns[i] = Column{Name: name, Type: inferType(values)}
	}

	samples := rows
	if len(samples) > sampleRowLimit {
		samples = samples[:sampleRowLimit]
	}

	return &Schema{
		Table:      table,
		Columns:    columns,
		RowCount:   len(rows),
		SampleRows: samples,
	}, nil
}

func (s *Schema) JSON() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal dataset schema failed: %w", err)
	}
	return string(raw), nil
}

// inferType picks a ClickHouse-flavored type name, since that is the dialect
// the generated queries target.
func inferType(values []string) string {
	if len(values) == 0 {
		return "String"
	}

	allInt, allFloat, allTime := true, true, true
	for _, v := range values {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		}
		if !isTimestamp(v) {
			allTime = false
		}
	}

	switch {
	case allInt:
		return "Int64"
	case allFloat:
		return "Float64"
	case allTime:
		return "DateTime"
	default:
		return "String"
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func isTimestamp(v string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

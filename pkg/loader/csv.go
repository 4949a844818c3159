package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xhad/walle/internal/models"
)

// Required source columns, matched case-insensitively against the header.
var requiredColumns = []string{"Date", "Year", "USD_Value", "INR_Rate", "Daily_Change"}

// CSVLoader reads the exchange-rate ledger from a CSV file. Column order in
// the file does not matter; the header row drives the mapping.
type CSVLoader struct {
	path string
}

func NewCSV(path string) *CSVLoader {
	return &CSVLoader{path: path}
}

func (l *CSVLoader) Load(ctx context.Context) ([]models.Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &models.DataSourceError{Source: l.path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &models.DataSourceError{Source: l.path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &models.DataSourceError{Source: l.path, Err: fmt.Errorf("empty file")}
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, &models.DataSourceError{Source: l.path, Err: err}
	}

	records := make([]models.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		records = append(records, recordFromRow(i, row, cols))
	}

	return records, nil
}

// mapColumns resolves required column names to their header positions.
func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	mapped := make(map[string]int, len(requiredColumns))
	for _, name := range requiredColumns {
		idx, ok := cols[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
		mapped[name] = idx
	}

	return mapped, nil
}

func recordFromRow(row int, cells []string, cols map[string]int) models.Record {
	get := func(name string) string {
		idx := cols[name]
		if idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	return models.Record{
		Row:         row,
		Date:        get("Date"),
		Year:        get("Year"),
		USDValue:    get("USD_Value"),
		INRRate:     get("INR_Rate"),
		DailyChange: get("Daily_Change"),
	}
}

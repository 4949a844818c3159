package rag

import (
	"sort"
	"time"

	"github.com/xhad/walle/internal/models"
)

// ChartPoint is one observation in the trend chart series.
type ChartPoint struct {
	Date time.Time
	Rate float64
}

// Ledger dates are day-first; ISO dates show up in hand-built fixtures.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"2 January 2006",
}

// Series builds the chart series from one retrieval result, sorted by
// date ascending. Documents whose date cannot be parsed are skipped.
func Series(records []models.ScoredDocument) []ChartPoint {
	points := make([]ChartPoint, 0, len(records))
	for _, rec := range records {
		d, err := parseDate(rec.Metadata.Date)
		if err != nil {
			continue
		}
		points = append(points, ChartPoint{Date: d, Rate: rec.Metadata.Rate})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return points
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, s)
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Package synth turns ledger rows into semantic documents: a deterministic
// narrative sentence plus typed metadata, suitable for embedding and later
// filtering or charting.
package synth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/xhad/walle/internal/models"
)

// Synthesize converts one record into a document. The document id is the
// record's ordinal row position stringified, which keeps the row->id mapping
// stable across re-runs over an unchanged source.
func Synthesize(rec models.Record) (models.Document, error) {
	year, err := strconv.Atoi(rec.Year)
	if err != nil {
		return models.Document{}, &models.RecordValidationError{
			Row: rec.Row, Field: "Year", Value: rec.Year, Err: err,
		}
	}

	rate, err := strconv.ParseFloat(rec.INRRate, 64)
	if err != nil {
		return models.Document{}, &models.RecordValidationError{
			Row: rec.Row, Field: "INR_Rate", Value: rec.INRRate, Err: err,
		}
	}

	change, err := strconv.ParseFloat(rec.DailyChange, 64)
	if err != nil {
		return models.Document{}, &models.RecordValidationError{
			Row: rec.Row, Field: "Daily_Change", Value: rec.DailyChange, Err: err,
		}
	}

	content := fmt.Sprintf(
		"On %s (%d), the exchange rate for %s US Dollar was %s Indian Rupees. "+
			"The currency saw a daily change of %s INR compared to the previous recorded session.",
		rec.Date, year, rec.USDValue, rec.INRRate, rec.DailyChange,
	)

	return models.Document{
		ID:      strconv.Itoa(rec.Row),
		Content: content,
		Metadata: models.Metadata{
			Date:   rec.Date,
			Year:   year,
			Rate:   rate,
			Change: change,
		},
	}, nil
}

// SynthesizeAll converts every record, collecting all row failures so an
// ingestion run can report exactly which rows were rejected. On any failure
// no documents are returned.
func SynthesizeAll(records []models.Record) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(records))
	var errs []error

	for _, rec := range records {
		doc, err := Synthesize(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return docs, nil
}

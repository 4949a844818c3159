package models

// Record is one row of the exchange-rate ledger as read from the source,
// before any type coercion. Row is the 0-based position in the source table.
type Record struct {
	Row         int
	Date        string
	Year        string
	USDValue    string
	INRRate     string
	DailyChange string
}

// Metadata carries the typed fields of a document, used for filtering and
// for building chart series without re-parsing the narrative content.
type Metadata struct {
	Date   string
	Year   int
	Rate   float64
	Change float64
}

// Document is a semantic document derived 1:1 from a Record: a narrative
// sentence plus structured metadata. The ID is stable across re-runs over
// an unchanged source.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// ScoredDocument is a retrieval result: a document together with its
// similarity to the query embedding.
type ScoredDocument struct {
	Document
	Similarity float64
}

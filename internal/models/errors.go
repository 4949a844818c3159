package models

import "fmt"

// DataSourceError indicates the ingestion source is missing, unreadable,
// or structurally invalid (e.g. a required column is absent).
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// RecordValidationError indicates a row whose fields could not be coerced
// to their semantic types. Row is the 0-based row position in the source.
type RecordValidationError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *RecordValidationError) Error() string {
	return fmt.Sprintf("row %d: field %s: invalid value %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *RecordValidationError) Unwrap() error { return e.Err }

// DuplicateDocumentError indicates an id collision during ingestion.
type DuplicateDocumentError struct {
	ID string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("duplicate document id %q", e.ID)
}

// EmbeddingError indicates the embedding service was unreachable or
// rejected a request.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding service: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError indicates the language model failed to produce a
// response. Timeout is set when the call exceeded its deadline.
type GenerationError struct {
	Err     error
	Timeout bool
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generation timed out: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IndexError indicates the vector store was unreachable or a query
// against it failed.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

package extract

import "errors"

var (
	// ErrInvalidDocument indicates bytes that could not be opened as a PDF.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrPageExtraction indicates a selected page that could not be processed.
	ErrPageExtraction = errors.New("page extraction failed")
)

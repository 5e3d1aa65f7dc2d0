package interfaces

import (
	"context"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// Extractor is a PDF extraction backend. Implementations must treat the
// page spec per the shared parse/resolve rules: an empty spec means no
// constraint, and a constraint that resolves to no valid pages yields an
// empty (not failed) result.
type Extractor interface {
	// Name returns the backend identifier used for dispatch.
	Name() string

	// Extract processes the document bytes and returns the extracted content.
	Extract(ctx context.Context, data []byte, pages string) (*models.ExtractedContent, error)
}

package models

// LinkType classifies a hyperlink found in a document.
type LinkType string

const (
	LinkTypeORCID    LinkType = "orcid"
	LinkTypeDOI      LinkType = "doi"
	LinkTypeEmail    LinkType = "email"
	LinkTypeCodeHost LinkType = "code_host"
	LinkTypeOther    LinkType = "other"
)

// Hyperlink is a link discovered in a document page. Page is 1-based.
type Hyperlink struct {
	URL  string   `json:"url"`
	Page int      `json:"page"`
	Type LinkType `json:"type"`
}

// Table is a detected tabular region. Page is 1-based.
type Table struct {
	Page int        `json:"page"`
	Rows [][]string `json:"rows"`
}

// Author is a structured entry parsed from embedded document metadata.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// DocumentMetadata carries embedded document metadata, post-processed into
// structured fields where possible. Raw preserves the original key/value map.
type DocumentMetadata struct {
	Title    string            `json:"title,omitempty"`
	Authors  []Author          `json:"authors,omitempty"`
	Keywords []string          `json:"keywords,omitempty"`
	Raw      map[string]string `json:"raw,omitempty"`
}

// ExtractedContent is the output of a single extraction backend run.
// PagesExtracted counts pages actually processed; with a page constraint it
// can legitimately be zero.
type ExtractedContent struct {
	FullText       string            `json:"full_text"`
	PageCount      int               `json:"page_count"`
	PagesExtracted int               `json:"pages_extracted"`
	Hyperlinks     []Hyperlink       `json:"hyperlinks"`
	Tables         []Table           `json:"tables,omitempty"`
	Metadata       *DocumentMetadata `json:"metadata,omitempty"`
}

// ExtractionRequest is the payload handed to the execution engine.
type ExtractionRequest struct {
	WorkflowID    string `json:"workflow_id"`
	URL           string `json:"url"`
	ExtractorType string `json:"extractor_type,omitempty"`
	Pages         string `json:"pages,omitempty"`
}

// ExtractionResult is the durable result recorded for a completed execution.
type ExtractionResult struct {
	Text           string            `json:"text"`
	NumPages       int               `json:"num_pages"`
	ExtractorUsed  string            `json:"extractor_used"`
	PagesExtracted int               `json:"pages_extracted"`
	Hyperlinks     []Hyperlink       `json:"hyperlinks,omitempty"`
	Tables         []Table           `json:"tables,omitempty"`
	Metadata       *DocumentMetadata `json:"metadata,omitempty"`
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

const (
	// wordGapTolerance is the horizontal gap (points) between glyph runs
	// that separates two words. Looser values merge adjacent words.
	wordGapTolerance = 2.0

	// rowTolerance is the vertical distance (points) within which glyph
	// runs belong to the same text row.
	rowTolerance = 2.0

	// columnGapTolerance is the horizontal gap (points) that separates
	// table cells within a row.
	columnGapTolerance = 18.0
)

// TextExtractor extracts positioned text from PDFs. It reconstructs words
// from glyph runs, detects simple table grids, and harvests URI annotations.
type TextExtractor struct {
	logger arbor.ILogger
}

// NewTextExtractor creates the text extraction backend.
func NewTextExtractor(logger arbor.ILogger) *TextExtractor {
	return &TextExtractor{logger: logger}
}

// Name returns the dispatch identifier for this backend.
func (e *TextExtractor) Name() string {
	return "text"
}

// Extract implements the extraction contract over ledongthuc/pdf.
func (e *TextExtractor) Extract(ctx context.Context, data []byte, pages string) (*models.ExtractedContent, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	pageCount := reader.NumPage()

	parsed, err := ParsePages(pages)
	if err != nil {
		return nil, err
	}
	resolved := ResolvePages(parsed, pageCount)

	indices := resolved
	if indices == nil {
		indices = make([]int, pageCount)
		for i := range indices {
			indices[i] = i
		}
	}

	content := &models.ExtractedContent{
		PageCount:      pageCount,
		PagesExtracted: len(indices),
		Hyperlinks:     []models.Hyperlink{},
	}

	var parts []string
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageNum := idx + 1
		text, tables, links, err := e.extractPage(reader, pageNum)
		if err != nil {
			return nil, err
		}

		// Table rows are folded into the page text as pipe-delimited lines
		// so downstream consumers see one flat text stream.
		for _, table := range tables {
			for _, row := range table.Rows {
				text += "\n" + strings.Join(row, " | ")
			}
		}

		parts = append(parts, text)
		content.Tables = append(content.Tables, tables...)
		content.Hyperlinks = append(content.Hyperlinks, links...)
	}

	fullText := strings.Join(parts, "\n\n")
	fullText += orcidTrailer(CollectORCIDs(content.Hyperlinks))
	content.FullText = fullText

	e.logger.Debug().
		Int("page_count", pageCount).
		Int("pages_extracted", content.PagesExtracted).
		Int("hyperlinks", len(content.Hyperlinks)).
		Int("tables", len(content.Tables)).
		Msg("Text extraction completed")

	return content, nil
}

// extractPage processes one page. ledongthuc/pdf panics on some malformed
// content streams, so the page walk is isolated behind a recover.
func (e *TextExtractor) extractPage(reader *pdf.Reader, pageNum int) (text string, tables []models.Table, links []models.Hyperlink, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: page %d: %v", ErrPageExtraction, pageNum, r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil, nil, fmt.Errorf("%w: page %d is missing", ErrPageExtraction, pageNum)
	}

	rows := clusterRows(page.Content().Text)
	text = renderRows(rows)
	tables = detectTables(rows, pageNum)
	links = pageAnnotations(page, pageNum)
	return text, tables, links, nil
}

// textRow is a horizontal line of glyph runs sharing a baseline.
type textRow struct {
	y    float64
	runs []pdf.Text
}

// clusterRows groups glyph runs into rows by baseline and orders them
// top-to-bottom (PDF y grows upward), left-to-right within a row. Whitespace
// runs are kept as word separators, though one never opens a row of its own.
// The stable sorts matter: standard-font documents report the same X for
// every run on a line, and content-stream order is the only order they have.
func clusterRows(runs []pdf.Text) []textRow {
	var rows []textRow
	for _, run := range runs {
		placed := false
		for i := range rows {
			if abs(rows[i].y-run.Y) <= rowTolerance {
				rows[i].runs = append(rows[i].runs, run)
				placed = true
				break
			}
		}
		if !placed && strings.TrimSpace(run.S) != "" {
			rows = append(rows, textRow{y: run.Y, runs: []pdf.Text{run}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	for i := range rows {
		runs := rows[i].runs
		sort.SliceStable(runs, func(a, b int) bool { return runs[a].X < runs[b].X })
	}
	return rows
}

// renderRows joins rows into page text. A word boundary is either a space
// glyph run or a horizontal gap beyond the word gap tolerance; the gap path
// covers embedded-font documents, the glyph path covers standard fonts where
// runs carry zero width and a constant X.
func renderRows(rows []textRow) string {
	var lines []string
	for _, row := range rows {
		var sb strings.Builder
		var prevEnd float64
		pendingSpace := false
		for _, run := range row.runs {
			if strings.TrimSpace(run.S) == "" {
				pendingSpace = true
				continue
			}
			if sb.Len() > 0 && (pendingSpace || run.X-prevEnd > wordGapTolerance) {
				sb.WriteString(" ")
			}
			sb.WriteString(run.S)
			prevEnd = run.X + run.W
			pendingSpace = false
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// detectTables finds grid-shaped regions: two or more consecutive rows whose
// runs split into the same number (>= 2) of cells at column-sized gaps.
func detectTables(rows []textRow, pageNum int) []models.Table {
	var tables []models.Table
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, models.Table{Page: pageNum, Rows: current})
		}
		current = nil
	}

	for _, row := range rows {
		cells := splitCells(row)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && len(current[len(current)-1]) != len(cells) {
			flush()
		}
		current = append(current, cells)
	}
	flush()

	return tables
}

// splitCells breaks a row into cells at column-sized horizontal gaps.
// Space glyph runs separate words within a cell, never cells.
func splitCells(row textRow) []string {
	var cells []string
	var sb strings.Builder
	var prevEnd float64
	pendingSpace := false

	for _, run := range row.runs {
		if strings.TrimSpace(run.S) == "" {
			pendingSpace = true
			continue
		}
		if sb.Len() > 0 {
			gap := run.X - prevEnd
			switch {
			case gap > columnGapTolerance:
				cells = append(cells, strings.TrimSpace(sb.String()))
				sb.Reset()
			case pendingSpace || gap > wordGapTolerance:
				sb.WriteString(" ")
			}
		}
		sb.WriteString(run.S)
		prevEnd = run.X + run.W
		pendingSpace = false
	}
	if sb.Len() > 0 {
		cells = append(cells, strings.TrimSpace(sb.String()))
	}
	return cells
}

// pageAnnotations harvests URI link annotations from the page dictionary.
func pageAnnotations(page pdf.Page, pageNum int) []models.Hyperlink {
	var links []models.Hyperlink

	annots := page.V.Key("Annots")
	if annots.Kind() != pdf.Array {
		return links
	}

	for i := 0; i < annots.Len(); i++ {
		uri := annots.Index(i).Key("A").Key("URI")
		if uri.Kind() != pdf.String {
			continue
		}
		u := uri.RawString()
		if u == "" {
			continue
		}
		links = append(links, models.Hyperlink{
			URL:  u,
			Page: pageNum,
			Type: ClassifyLink(u),
		})
	}
	return links
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

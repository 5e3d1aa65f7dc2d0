package extract

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// buildPDF renders a test document with one page per entry of pageTexts.
func buildPDF(t *testing.T, pageTexts ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pageTexts {
		doc.AddPage()
		doc.Cell(0, 10, text)
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// buildPDFWithLink renders a single page carrying a URI link annotation.
func buildPDFWithLink(t *testing.T, text, target string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Cell(0, 10, text)
	doc.Ln(12)
	doc.WriteLinkString(10, "author profile", target)

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestTextExtractor_Name(t *testing.T) {
	e := NewTextExtractor(common.GetLogger())
	assert.Equal(t, "text", e.Name())
}

func TestTextExtractor_AllPages(t *testing.T) {
	data := buildPDF(t, "First page content", "Second page content", "Third page content")
	e := NewTextExtractor(common.GetLogger())

	content, err := e.Extract(context.Background(), data, "")
	require.NoError(t, err)

	assert.Equal(t, 3, content.PageCount)
	assert.Equal(t, 3, content.PagesExtracted)
	assert.Contains(t, content.FullText, "First page content")
	assert.Contains(t, content.FullText, "Second page content")
	assert.Contains(t, content.FullText, "Third page content")
}

func TestTextExtractor_LastPageOnly(t *testing.T) {
	data := buildPDF(t, "First page content", "Second page content", "Third page content")
	e := NewTextExtractor(common.GetLogger())

	content, err := e.Extract(context.Background(), data, "-1")
	require.NoError(t, err)

	assert.Equal(t, 3, content.PageCount)
	assert.Equal(t, 1, content.PagesExtracted)
	assert.Contains(t, content.FullText, "Third page content")
	assert.NotContains(t, content.FullText, "First page content")
}

func TestTextExtractor_EmptyResolvedSet(t *testing.T) {
	data := buildPDF(t, "Only page")
	e := NewTextExtractor(common.GetLogger())

	// A constraint naming only out-of-range pages is valid and yields an
	// empty result, not a failure or a full-document extraction.
	content, err := e.Extract(context.Background(), data, "99")
	require.NoError(t, err)

	assert.Equal(t, 1, content.PageCount)
	assert.Equal(t, 0, content.PagesExtracted)
	assert.Empty(t, content.FullText)
}

func TestTextExtractor_BadPageSpec(t *testing.T) {
	data := buildPDF(t, "Only page")
	e := NewTextExtractor(common.GetLogger())

	_, err := e.Extract(context.Background(), data, "abc")
	assert.ErrorIs(t, err, ErrBadPageSpec)
}

func TestTextExtractor_InvalidDocument(t *testing.T) {
	e := NewTextExtractor(common.GetLogger())

	_, err := e.Extract(context.Background(), []byte("not a pdf at all"), "")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestTextExtractor_HyperlinkAnnotations(t *testing.T) {
	data := buildPDFWithLink(t, "Paper title", "https://orcid.org/0000-0002-1825-0097")
	e := NewTextExtractor(common.GetLogger())

	content, err := e.Extract(context.Background(), data, "")
	require.NoError(t, err)

	require.Len(t, content.Hyperlinks, 1)
	assert.Equal(t, "https://orcid.org/0000-0002-1825-0097", content.Hyperlinks[0].URL)
	assert.Equal(t, 1, content.Hyperlinks[0].Page)
	assert.Equal(t, models.LinkTypeORCID, content.Hyperlinks[0].Type)

	assert.Contains(t, content.FullText, "ORCID IDs from hyperlinks: 0000-0002-1825-0097")
}

func run(x, y, w float64, s string) pdf.Text {
	return pdf.Text{X: x, Y: y, W: w, S: s}
}

func TestClusterRows(t *testing.T) {
	runs := []pdf.Text{
		run(10, 700, 20, "bottom-later"),
		run(10, 750, 20, "top-first"),
		run(35, 750.5, 20, "top-second"), // within row tolerance of 750
		run(5, 700, 4, "bottom-first"),
		run(10, 720, 5, " "), // whitespace runs never open a row
	}

	rows := clusterRows(runs)
	require.Len(t, rows, 2)

	// Top row first, runs ordered by x.
	assert.Equal(t, "top-first", rows[0].runs[0].S)
	assert.Equal(t, "top-second", rows[0].runs[1].S)
	assert.Equal(t, "bottom-first", rows[1].runs[0].S)
	assert.Equal(t, "bottom-later", rows[1].runs[1].S)
}

func TestClusterRows_KeepsWhitespaceWithinRow(t *testing.T) {
	runs := []pdf.Text{
		run(10, 750, 20, "word"),
		run(30, 750, 5, " "),
		run(35, 750, 20, "another"),
	}

	rows := clusterRows(runs)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].runs, 3)
	assert.Equal(t, " ", rows[0].runs[1].S)
}

func TestRenderRows_WordGaps(t *testing.T) {
	rows := []textRow{
		{y: 750, runs: []pdf.Text{
			run(10, 750, 10, "Hel"),
			run(20.5, 750, 10, "lo"),  // gap 0.5 <= tolerance: same word
			run(40, 750, 10, "world"), // gap 9.5 > tolerance: new word
		}},
		{y: 730, runs: []pdf.Text{run(10, 730, 10, "next line")}},
	}

	assert.Equal(t, "Hello world\nnext line", renderRows(rows))
}

func TestRenderRows_SpaceRunsSeparateWords(t *testing.T) {
	// Standard-font documents report every run on a line at the same x
	// with zero width; the space glyph is the only word boundary.
	rows := []textRow{
		{y: 750, runs: []pdf.Text{
			run(31.19, 750, 0, "First"),
			run(31.19, 750, 0, " "),
			run(31.19, 750, 0, "page"),
			run(31.19, 750, 0, " "),
			run(31.19, 750, 0, "content"),
		}},
	}

	assert.Equal(t, "First page content", renderRows(rows))
}

func TestSplitCells(t *testing.T) {
	row := textRow{y: 700, runs: []pdf.Text{
		run(10, 700, 15, "Name"),
		run(28, 700, 10, "of"), // word gap
		run(100, 700, 15, "Value"),
		run(200, 700, 15, "Unit"),
	}}

	assert.Equal(t, []string{"Name of", "Value", "Unit"}, splitCells(row))
}

func TestSplitCells_SpaceRuns(t *testing.T) {
	row := textRow{y: 700, runs: []pdf.Text{
		run(10, 700, 0, "Name"),
		run(10, 700, 0, " "),
		run(10, 700, 0, "of"),
	}}

	assert.Equal(t, []string{"Name of"}, splitCells(row))
}

func TestDetectTables(t *testing.T) {
	rows := []textRow{
		{y: 760, runs: []pdf.Text{run(10, 760, 40, "A heading line")}},
		{y: 740, runs: []pdf.Text{run(10, 740, 15, "col1"), run(100, 740, 15, "col2")}},
		{y: 720, runs: []pdf.Text{run(10, 720, 15, "a"), run(100, 720, 15, "b")}},
		{y: 700, runs: []pdf.Text{run(10, 700, 15, "c"), run(100, 700, 15, "d")}},
		{y: 680, runs: []pdf.Text{run(10, 680, 40, "closing prose")}},
	}

	tables := detectTables(rows, 2)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].Page)
	assert.Equal(t, [][]string{{"col1", "col2"}, {"a", "b"}, {"c", "d"}}, tables[0].Rows)
}

func TestDetectTables_SingleRowIgnored(t *testing.T) {
	rows := []textRow{
		{y: 740, runs: []pdf.Text{run(10, 740, 15, "col1"), run(100, 740, 15, "col2")}},
		{y: 720, runs: []pdf.Text{run(10, 720, 40, "prose again")}},
	}

	assert.Empty(t, detectTables(rows, 1))
}

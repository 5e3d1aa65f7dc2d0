package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

func TestMarkdownExtractor_Name(t *testing.T) {
	e := NewMarkdownExtractor(common.GetLogger())
	assert.Equal(t, "markdown", e.Name())
}

func TestMarkdownExtractor_AllPages(t *testing.T) {
	data := buildPDF(t, "First page content", "Second page content")
	e := NewMarkdownExtractor(common.GetLogger())

	content, err := e.Extract(context.Background(), data, "")
	require.NoError(t, err)

	assert.Equal(t, 2, content.PageCount)
	assert.Equal(t, 2, content.PagesExtracted)
	assert.Contains(t, content.FullText, "First page content")
	assert.Contains(t, content.FullText, "Second page content")
}

func TestMarkdownExtractor_PageSelection(t *testing.T) {
	data := buildPDF(t, "First page content", "Second page content", "Third page content")
	e := NewMarkdownExtractor(common.GetLogger())

	content, err := e.Extract(context.Background(), data, "-1")
	require.NoError(t, err)

	assert.Equal(t, 3, content.PageCount)
	assert.Equal(t, 1, content.PagesExtracted)
	assert.Contains(t, content.FullText, "Third page content")
	assert.NotContains(t, content.FullText, "First page content")
}

func TestMarkdownExtractor_InvalidDocument(t *testing.T) {
	e := NewMarkdownExtractor(common.GetLogger())

	_, err := e.Extract(context.Background(), []byte("definitely not a pdf"), "")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestMarkdownExtractor_BadPageSpec(t *testing.T) {
	data := buildPDF(t, "Only page")
	e := NewMarkdownExtractor(common.GetLogger())

	_, err := e.Extract(context.Background(), data, "not-a-spec")
	assert.ErrorIs(t, err, ErrBadPageSpec)
}

func TestHarvestHTMLLinks(t *testing.T) {
	html := `<html><body>
		<p><a href="https://orcid.org/0000-0002-1825-0097">author</a></p>
		<p><a href="https://doi.org/10.1000/x">paper</a></p>
		<p><a href="#section-2">internal anchor</a></p>
		<p><a href="">empty</a></p>
		<p><a href=" https://example.org/data ">dataset</a></p>
	</body></html>`

	links := harvestHTMLLinks(html, 4)
	require.Len(t, links, 3)

	assert.Equal(t, models.Hyperlink{URL: "https://orcid.org/0000-0002-1825-0097", Page: 4, Type: models.LinkTypeORCID}, links[0])
	assert.Equal(t, models.Hyperlink{URL: "https://doi.org/10.1000/x", Page: 4, Type: models.LinkTypeDOI}, links[1])
	assert.Equal(t, models.Hyperlink{URL: "https://example.org/data", Page: 4, Type: models.LinkTypeOther}, links[2])
}

func TestHarvestHTMLLinks_NoAnchors(t *testing.T) {
	assert.Empty(t, harvestHTMLLinks("<html><body><p>plain</p></body></html>", 1))
}

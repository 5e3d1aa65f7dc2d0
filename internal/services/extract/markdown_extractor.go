package extract

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/gen2brain/go-fitz"
	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
	"github.com/inveniosoftware/airdec-workflows/internal/services/metadata"
)

// MarkdownExtractor renders PDF pages to HTML via MuPDF and converts them to
// markdown. It also carries the document's embedded metadata through,
// post-processed into structured fields.
type MarkdownExtractor struct {
	logger arbor.ILogger
}

// NewMarkdownExtractor creates the markdown extraction backend.
func NewMarkdownExtractor(logger arbor.ILogger) *MarkdownExtractor {
	return &MarkdownExtractor{logger: logger}
}

// Name returns the dispatch identifier for this backend.
func (e *MarkdownExtractor) Name() string {
	return "markdown"
}

// Extract implements the extraction contract over go-fitz.
func (e *MarkdownExtractor) Extract(ctx context.Context, data []byte, pages string) (*models.ExtractedContent, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()

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

	converter := md.NewConverter("", true, nil)

	var parts []string
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageNum := idx + 1
		html, err := doc.HTML(idx, true)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrPageExtraction, pageNum, err)
		}

		markdown, err := converter.ConvertString(html)
		if err != nil || strings.TrimSpace(markdown) == "" {
			// Fall back to the plain text rendering rather than failing the page.
			e.logger.Warn().Err(err).Int("page", pageNum).Msg("HTML to markdown conversion fell back to plain text")
			text, terr := doc.Text(idx)
			if terr != nil {
				return nil, fmt.Errorf("%w: page %d: %v", ErrPageExtraction, pageNum, terr)
			}
			markdown = text
		}

		parts = append(parts, strings.TrimSpace(markdown))
		content.Hyperlinks = append(content.Hyperlinks, harvestHTMLLinks(html, pageNum)...)
	}

	orcids := CollectORCIDs(content.Hyperlinks)
	fullText := strings.Join(parts, "\n\n")
	fullText += orcidTrailer(orcids)
	content.FullText = fullText
	content.Metadata = metadata.Build(doc.Metadata(), fullText)
	if content.Metadata != nil {
		metadata.FillAuthorORCIDs(content.Metadata.Authors, orcids)
	}

	e.logger.Debug().
		Int("page_count", pageCount).
		Int("pages_extracted", content.PagesExtracted).
		Int("hyperlinks", len(content.Hyperlinks)).
		Msg("Markdown extraction completed")

	return content, nil
}

// harvestHTMLLinks collects anchor targets from a rendered page.
func harvestHTMLLinks(html string, pageNum int) []models.Hyperlink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []models.Hyperlink
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		links = append(links, models.Hyperlink{
			URL:  href,
			Page: pageNum,
			Type: ClassifyLink(href),
		})
	})
	return links
}

package metadata

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// Build post-processes raw embedded document metadata into structured
// fields. markdown, when non-empty, supplies a title fallback: the first
// top-level heading of the rendered document.
func Build(raw map[string]string, markdown string) *models.DocumentMetadata {
	cleaned := make(map[string]string)
	for k, v := range raw {
		if strings.TrimSpace(v) != "" {
			cleaned[k] = v
		}
	}

	meta := &models.DocumentMetadata{
		Title:    strings.TrimSpace(cleaned["title"]),
		Authors:  ParseAuthors(cleaned["author"]),
		Keywords: ParseKeywords(cleaned["keywords"]),
		Raw:      cleaned,
	}

	if meta.Title == "" && markdown != "" {
		meta.Title = TitleFromMarkdown(markdown)
	}

	if meta.Title == "" && meta.Authors == nil && meta.Keywords == nil && len(cleaned) == 0 {
		return nil
	}
	return meta
}

// ParseKeywords splits an embedded keywords field on commas and semicolons.
func ParseKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var keywords []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

// ParseAuthors splits an embedded author field into structured records.
// Entries are separated by semicolons when present, otherwise commas.
// A parenthesized suffix is read as the affiliation:
// "Ada Lovelace (Analytical Engines Ltd)".
func ParseAuthors(s string) []models.Author {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}

	var authors []models.Author
	for _, entry := range strings.Split(s, sep) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		author := models.Author{Name: entry}
		if open := strings.LastIndex(entry, "("); open > 0 && strings.HasSuffix(entry, ")") {
			author.Name = strings.TrimSpace(entry[:open])
			author.Affiliation = strings.TrimSpace(entry[open+1 : len(entry)-1])
		}
		authors = append(authors, author)
	}
	return authors
}

// FillAuthorORCIDs assigns discovered ORCID identifiers to authors
// positionally: the first id to the first author without one, and so on.
// The heuristic follows the common author-ordered id listing in papers; ids
// beyond the author count are left to the hyperlink list.
func FillAuthorORCIDs(authors []models.Author, orcids []string) {
	next := 0
	for i := range authors {
		if next >= len(orcids) {
			return
		}
		if authors[i].ORCID == "" {
			authors[i].ORCID = orcids[next]
			next++
		}
	}
}

// TitleFromMarkdown returns the text of the first level-1 heading, or "".
func TitleFromMarkdown(markdown string) string {
	src := []byte(markdown)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	title := ""
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok && heading.Level == 1 {
			title = strings.TrimSpace(string(heading.Text(src)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

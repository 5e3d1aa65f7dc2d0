package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"commas", "physics, astronomy,cosmology", []string{"physics", "astronomy", "cosmology"}},
		{"semicolons", "physics; astronomy", []string{"physics", "astronomy"}},
		{"mixed separators", "a, b; c", []string{"a", "b", "c"}},
		{"empty segments dropped", "a,, b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKeywords(tt.in))
		})
	}
}

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []models.Author
	}{
		{"empty", "", nil},
		{
			"comma separated",
			"Ada Lovelace, Charles Babbage",
			[]models.Author{{Name: "Ada Lovelace"}, {Name: "Charles Babbage"}},
		},
		{
			"semicolons win over commas",
			"Lovelace, Ada; Babbage, Charles",
			[]models.Author{{Name: "Lovelace, Ada"}, {Name: "Babbage, Charles"}},
		},
		{
			"affiliation in parens",
			"Ada Lovelace (Analytical Engines Ltd); Charles Babbage",
			[]models.Author{
				{Name: "Ada Lovelace", Affiliation: "Analytical Engines Ltd"},
				{Name: "Charles Babbage"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAuthors(tt.in))
		})
	}
}

func TestTitleFromMarkdown(t *testing.T) {
	md := "some preamble\n\n# A Study of Things\n\n## Methods\n"
	assert.Equal(t, "A Study of Things", TitleFromMarkdown(md))

	assert.Empty(t, TitleFromMarkdown("no headings here"))
	assert.Empty(t, TitleFromMarkdown("## only a subheading"))
}

func TestBuild(t *testing.T) {
	raw := map[string]string{
		"title":    "Embedded Title",
		"author":   "Ada Lovelace; Charles Babbage",
		"keywords": "engines, mathematics",
		"producer": "SomeTool 1.0",
		"subject":  "",
	}

	meta := Build(raw, "# Markdown Title\n\nbody")
	require.NotNil(t, meta)

	assert.Equal(t, "Embedded Title", meta.Title)
	assert.Len(t, meta.Authors, 2)
	assert.Equal(t, []string{"engines", "mathematics"}, meta.Keywords)
	assert.Equal(t, "SomeTool 1.0", meta.Raw["producer"])
	assert.NotContains(t, meta.Raw, "subject", "empty raw values are dropped")
}

func TestBuild_TitleFallsBackToMarkdown(t *testing.T) {
	meta := Build(map[string]string{"title": "  "}, "# Rendered Title\n\nbody")
	require.NotNil(t, meta)
	assert.Equal(t, "Rendered Title", meta.Title)
}

func TestFillAuthorORCIDs(t *testing.T) {
	authors := []models.Author{
		{Name: "Ada Lovelace"},
		{Name: "Charles Babbage", ORCID: "0000-0001-0000-0001"},
		{Name: "George Boole"},
	}

	FillAuthorORCIDs(authors, []string{"0000-0002-0000-0002", "0000-0003-0000-0003", "0000-0004-0000-0004"})

	assert.Equal(t, "0000-0002-0000-0002", authors[0].ORCID)
	assert.Equal(t, "0000-0001-0000-0001", authors[1].ORCID, "existing ids are not overwritten")
	assert.Equal(t, "0000-0003-0000-0003", authors[2].ORCID)
}

func TestFillAuthorORCIDs_FewerIDsThanAuthors(t *testing.T) {
	authors := []models.Author{{Name: "A"}, {Name: "B"}}
	FillAuthorORCIDs(authors, []string{"0000-0002-1825-0097"})

	assert.Equal(t, "0000-0002-1825-0097", authors[0].ORCID)
	assert.Empty(t, authors[1].ORCID)
}

func TestBuild_NothingToReport(t *testing.T) {
	assert.Nil(t, Build(map[string]string{"title": ""}, ""))
	assert.Nil(t, Build(nil, ""))
}

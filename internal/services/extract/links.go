package extract

import (
	"regexp"
	"strings"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// orcidPattern matches an ORCID identifier anywhere in a URI, including the
// X checksum variant.
var orcidPattern = regexp.MustCompile(`\d{4}-\d{4}-\d{4}-\d{3}[\dX]`)

// codeHostDomains are the hosting services a link is classified against.
var codeHostDomains = []string{"github.com", "gitlab.com", "bitbucket.org"}

// ClassifyLink assigns a link type to a URI. Checks are ordered by
// specificity: ORCID before DOI before mailto before code hosts.
func ClassifyLink(uri string) models.LinkType {
	lower := strings.ToLower(uri)

	switch {
	case strings.Contains(lower, "orcid.org"):
		return models.LinkTypeORCID
	case strings.Contains(lower, "doi.org") || strings.HasPrefix(lower, "10."):
		return models.LinkTypeDOI
	case strings.HasPrefix(lower, "mailto:"):
		return models.LinkTypeEmail
	default:
		for _, domain := range codeHostDomains {
			if strings.Contains(lower, domain) {
				return models.LinkTypeCodeHost
			}
		}
		return models.LinkTypeOther
	}
}

// ExtractORCID pulls the ORCID identifier out of a URI. The identifier can
// appear anywhere in the string, not only as a path suffix.
func ExtractORCID(uri string) (string, bool) {
	id := orcidPattern.FindString(uri)
	if id == "" {
		return "", false
	}
	return id, true
}

// CollectORCIDs returns the unique ORCID identifiers found in orcid-typed
// hyperlinks, in first-seen order.
func CollectORCIDs(links []models.Hyperlink) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, link := range links {
		if link.Type != models.LinkTypeORCID {
			continue
		}
		id, ok := ExtractORCID(link.URL)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// orcidTrailer renders the ORCID summary line appended to extracted text
// when orcid links were discovered.
func orcidTrailer(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return "\n\nORCID IDs from hyperlinks: " + strings.Join(ids, " ")
}

package extract

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrBadPageSpec indicates a page spec that could not be parsed.
var ErrBadPageSpec = errors.New("invalid page spec")

// ParsePages parses a page spec string into 1-based page references.
// The grammar is comma-separated tokens, each either a single page ("3"),
// an inclusive range ("3-5"), or a negative offset from the end ("-1" is the
// last page). An empty spec returns nil, meaning no page constraint.
func ParsePages(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var pages []int
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrBadPageSpec, spec)
		}

		switch {
		case strings.HasPrefix(token, "-"):
			// Negative offset from the end of the document.
			n, err := strconv.Atoi(token)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrBadPageSpec, token)
			}
			pages = append(pages, n)

		case strings.Contains(token, "-"):
			parts := strings.SplitN(token, "-", 2)
			start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, fmt.Errorf("%w: range start %q", ErrBadPageSpec, token)
			}
			end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("%w: range end %q", ErrBadPageSpec, token)
			}
			if start > end {
				return nil, fmt.Errorf("%w: reversed range %q", ErrBadPageSpec, token)
			}
			for p := start; p <= end; p++ {
				pages = append(pages, p)
			}

		default:
			n, err := strconv.Atoi(token)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrBadPageSpec, token)
			}
			pages = append(pages, n)
		}
	}

	return pages, nil
}

// ResolvePages converts parsed 1-based/negative page references into a
// sorted, deduplicated set of 0-based indices valid for a document of
// pageCount pages. References outside the document are dropped silently.
//
// A nil input means no constraint and returns nil. A non-nil input always
// returns a non-nil slice, even when every reference was dropped: an empty
// resolved set is a valid outcome distinct from "no constraint".
func ResolvePages(pages []int, pageCount int) []int {
	if pages == nil {
		return nil
	}

	seen := make(map[int]bool)
	for _, p := range pages {
		var idx int
		if p < 0 {
			idx = pageCount + p
		} else {
			idx = p - 1
		}
		if idx >= 0 && idx < pageCount {
			seen[idx] = true
		}
	}

	resolved := make([]int, 0, len(seen))
	for idx := range seen {
		resolved = append(resolved, idx)
	}
	sort.Ints(resolved)
	return resolved
}

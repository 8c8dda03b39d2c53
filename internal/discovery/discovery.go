// Package discovery finds the page PDFs of an edition inside the markup of
// its listing page.
package discovery

import (
	"fmt"
	"regexp"
)

// AssetPath is the path of a single page PDF relative to the site origin,
// ex. /editions/arcinfo/ABCDEF123456/pdf/page1.pdf
type AssetPath string

// Matcher extracts page asset paths from a listing page. Implementations must
// return paths in the order they appear in the document.
type Matcher interface {
	Match(body []byte) []AssetPath
}

// PagePattern matches the path of a page PDF: a 12 character edition token
// followed by the page number.
var PagePattern = regexp.MustCompile(`/editions/arcinfo/.{12}/pdf/page\d+\.pdf`)

// RegexMatcher scans the raw markup with a regular expression. Repeated
// occurrences of the same path are all returned.
type RegexMatcher struct {
	Pattern *regexp.Regexp
}

func NewRegexMatcher() RegexMatcher {
	return RegexMatcher{Pattern: PagePattern}
}

func (m RegexMatcher) Match(body []byte) []AssetPath {
	pattern := m.Pattern
	if pattern == nil {
		pattern = PagePattern
	}

	matches := pattern.FindAll(body, -1)
	out := make([]AssetPath, len(matches))
	for i, match := range matches {
		out[i] = AssetPath(match)
	}
	return out
}

const (
	MatcherRegex    = "regex"
	MatcherSelector = "selector"
)

// NewMatcher returns the matcher registered under the given name, an empty
// name selects the regex matcher.
func NewMatcher(name string) (Matcher, error) {
	switch name {
	case "", MatcherRegex:
		return NewRegexMatcher(), nil
	case MatcherSelector:
		return NewSelectorMatcher(), nil
	default:
		return nil, fmt.Errorf("unknown matcher %q (expected %q or %q)", name, MatcherRegex, MatcherSelector)
	}
}

// Dedupe drops every path that was already seen, keeping the first
// occurrence.
func Dedupe(paths []AssetPath) []AssetPath {
	seen := make(map[AssetPath]struct{}, len(paths))
	out := make([]AssetPath, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

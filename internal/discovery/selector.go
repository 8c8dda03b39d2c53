package discovery

import (
	"bytes"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// SelectorMatcher walks the parsed document and returns attribute values
// (href, src, data-*) that are page asset paths. Unlike RegexMatcher it
// ignores paths that only appear in text or inline scripts.
type SelectorMatcher struct {
	Pattern *regexp.Regexp
}

func NewSelectorMatcher() SelectorMatcher {
	return SelectorMatcher{Pattern: PagePattern}
}

func (m SelectorMatcher) Match(body []byte) []AssetPath {
	pattern := m.Pattern
	if pattern == nil {
		pattern = PagePattern
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var out []AssetPath
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			out = append(out, matchAttributes(pattern, node.Attr)...)
		}
	})
	return out
}

func matchAttributes(pattern *regexp.Regexp, attrs []html.Attribute) []AssetPath {
	var out []AssetPath
	for _, attr := range attrs {
		for _, match := range pattern.FindAllString(attr.Val, -1) {
			out = append(out, AssetPath(match))
		}
	}
	return out
}

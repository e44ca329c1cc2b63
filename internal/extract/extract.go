// Package extract isolates the meaningful content sub-tree from raw page
// HTML, stripping site cruft according to a per-feed removal policy.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedloom/feedloom/internal/feed"
)

// Tags removed from every extracted subtree regardless of policy.
var disallowedTags = []string{"script", "style", "iframe", "embed", "object", "noscript"}

// data-* attributes preserved through extraction. data-src/data-srcset carry
// lazy-loaded image sources; data-sanitized is the processor's marker.
var allowedDataAttrs = map[string]struct{}{
	"data-src":       {},
	"data-srcset":    {},
	"data-sanitized": {},
}

// Fallback chain tried when no content selector is configured or the
// configured one matches nothing. body always matches on a parsed document.
var fallbackSelectors = []string{"article", "main", "[role=main]", "body"}

// Extractor implements feed.Extractor using goquery.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract selects the content root, then cleans only the extracted subtree:
// removal selectors are applied after root selection so they can target
// elements nested inside the root.
func (e *Extractor) Extract(html string, opts feed.ExtractOptions) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &feed.ExtractionError{Err: err}
	}

	root := selectRoot(doc, opts.ContentSelector)

	for _, sel := range opts.RemoveSelectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		root.Find(sel).Remove()
	}
	for _, tag := range disallowedTags {
		root.Find(tag).Remove()
	}

	removeEmptyLeaves(root)
	stripDataAttrs(root)

	rendered, err := renderRoot(root)
	if err != nil {
		return "", &feed.ExtractionError{Err: err}
	}
	return strings.TrimSpace(rendered), nil
}

// selectRoot returns the first match of the configured selector, falling
// back through semantic tags to body. It never fails: an absent selector
// degrades instead of erroring.
func selectRoot(doc *goquery.Document, contentSelector string) *goquery.Selection {
	if contentSelector != "" {
		if sel := doc.Find(contentSelector).First(); sel.Length() > 0 {
			return sel
		}
	}
	for _, fallback := range fallbackSelectors {
		if sel := doc.Find(fallback).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}

// removeEmptyLeaves drops elements with no text and no image descendant.
// Removal can empty a parent, so passes repeat until a fixpoint (bounded to
// avoid pathological documents).
func removeEmptyLeaves(root *goquery.Selection) {
	for pass := 0; pass < 10; pass++ {
		removed := 0
		root.Find("*").Each(func(_ int, s *goquery.Selection) {
			if s.Children().Length() > 0 {
				return
			}
			if s.Is("img, br, hr, picture, source, video, audio") {
				return
			}
			if strings.TrimSpace(s.Text()) != "" {
				return
			}
			s.Remove()
			removed++
		})
		if removed == 0 {
			return
		}
	}
}

func stripDataAttrs(root *goquery.Selection) {
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			kept := node.Attr[:0]
			for _, attr := range node.Attr {
				if strings.HasPrefix(attr.Key, "data-") {
					if _, ok := allowedDataAttrs[attr.Key]; !ok {
						continue
					}
				}
				kept = append(kept, attr)
			}
			node.Attr = kept
		}
	})
}

// renderRoot serializes the subtree. The body wrapper goquery adds around
// fragments is not part of the content, so body renders as its inner HTML.
func renderRoot(root *goquery.Selection) (string, error) {
	if root.Is("body") || root.Nodes == nil {
		return root.Html()
	}
	return goquery.OuterHtml(root)
}

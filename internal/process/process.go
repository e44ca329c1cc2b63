// Package process sanitizes extracted HTML and applies a feed's formatting
// policy to produce the final stored content.
package process

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedloom/feedloom/internal/feed"
)

// Marker classes let reprocessing detect already-injected blocks, keeping
// the policy application idempotent.
const (
	titleImageClass   = "article-title-image"
	sourceFooterClass = "article-source-footer"
)

// sanitizedAttr tags elements that had attributes neutralized, so a later
// presentation layer can strip or audit them.
const sanitizedAttr = "data-sanitized"

// Processor implements feed.Processor.
type Processor struct{}

// New returns a Processor.
func New() *Processor {
	return &Processor{}
}

// Process sanitizes the HTML and applies the format policy. Both policy
// blocks are applied deterministically and at most once: reprocessing
// already-processed content yields identical output.
func (p *Processor) Process(html string, art feed.RawArticle, policy feed.FormatPolicy) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &feed.ProcessingError{Err: err}
	}

	body := doc.Find("body")
	sanitize(body)

	if policy.GenerateTitleImage && art.ThumbnailURL != "" {
		if body.Find("figure."+titleImageClass).Length() == 0 {
			body.PrependHtml(titleImageBlock(art))
		}
	}
	if policy.AddSourceFooter && art.URL != "" {
		if body.Find("p."+sourceFooterClass).Length() == 0 {
			body.AppendHtml(sourceFooterBlock(art))
		}
	}

	out, err := body.Html()
	if err != nil {
		return "", &feed.ProcessingError{Err: err}
	}
	return strings.TrimSpace(out), nil
}

// sanitize neutralizes script and event-handler vectors in place: script and
// form elements are dropped, on* attributes and javascript: URLs removed.
// Elements that lost an attribute are tagged for later optional stripping.
func sanitize(root *goquery.Selection) {
	root.Find("script, form").Remove()

	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			kept := node.Attr[:0]
			touched := false
			for _, attr := range node.Attr {
				key := strings.ToLower(attr.Key)
				switch {
				case strings.HasPrefix(key, "on"):
					touched = true
				case (key == "href" || key == "src") && isScriptURL(attr.Val):
					touched = true
				default:
					kept = append(kept, attr)
				}
			}
			node.Attr = kept
			if touched {
				s.SetAttr(sanitizedAttr, "true")
			}
		}
	})
}

func isScriptURL(val string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(val))
	return strings.HasPrefix(trimmed, "javascript:") || strings.HasPrefix(trimmed, "vbscript:")
}

func titleImageBlock(art feed.RawArticle) string {
	alt := htmlEscape(art.Title)
	return fmt.Sprintf(`<figure class=%q><img src=%q alt=%q/></figure>`,
		titleImageClass, art.ThumbnailURL, alt)
}

func sourceFooterBlock(art feed.RawArticle) string {
	return fmt.Sprintf(`<p class=%q><a href=%q rel="noopener">Source</a></p>`,
		sourceFooterClass, art.URL)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}

package process

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
)

var article = feed.RawArticle{
	Title:        "Big News",
	URL:          "https://example.com/big-news",
	ThumbnailURL: "https://example.com/thumb.jpg",
}

func TestProcess_RemovesScriptVectors(t *testing.T) {
	t.Parallel()

	html := `<div><script>evil()</script><p onclick="steal()">text</p><a href="javascript:alert(1)">link</a></div>`
	got, err := New().Process(html, article, feed.FormatPolicy{})
	require.NoError(t, err)
	require.NotContains(t, got, "script")
	require.NotContains(t, got, "onclick")
	require.NotContains(t, got, "javascript:")
	require.Contains(t, got, "text")
}

func TestProcess_TagsSanitizedElements(t *testing.T) {
	t.Parallel()

	html := `<p onmouseover="x()">hover</p>`
	got, err := New().Process(html, article, feed.FormatPolicy{})
	require.NoError(t, err)
	require.Contains(t, got, `data-sanitized="true"`)
}

func TestProcess_TitleImagePrepended(t *testing.T) {
	t.Parallel()

	got, err := New().Process("<p>story</p>", article, feed.FormatPolicy{GenerateTitleImage: true})
	require.NoError(t, err)
	require.Contains(t, got, "article-title-image")
	require.Contains(t, got, article.ThumbnailURL)
	require.Less(t, strings.Index(got, "article-title-image"), strings.Index(got, "story"))
}

func TestProcess_TitleImageSkippedWithoutThumbnail(t *testing.T) {
	t.Parallel()

	art := article
	art.ThumbnailURL = ""
	got, err := New().Process("<p>story</p>", art, feed.FormatPolicy{GenerateTitleImage: true})
	require.NoError(t, err)
	require.NotContains(t, got, "article-title-image")
}

func TestProcess_SourceFooterAppended(t *testing.T) {
	t.Parallel()

	got, err := New().Process("<p>story</p>", article, feed.FormatPolicy{AddSourceFooter: true})
	require.NoError(t, err)
	require.Contains(t, got, "article-source-footer")
	require.Contains(t, got, article.URL)
	require.Greater(t, strings.Index(got, "article-source-footer"), strings.Index(got, "story"))
}

func TestProcess_Idempotent(t *testing.T) {
	t.Parallel()

	policy := feed.FormatPolicy{GenerateTitleImage: true, AddSourceFooter: true}
	p := New()

	once, err := p.Process("<p>story</p>", article, policy)
	require.NoError(t, err)

	twice, err := p.Process(once, article, policy)
	require.NoError(t, err)

	require.Equal(t, once, twice)
	require.Equal(t, 1, strings.Count(twice, "article-source-footer"))
	require.Equal(t, 1, strings.Count(twice, "article-title-image"))
}

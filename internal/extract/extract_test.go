package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
)

func TestExtract_ContentSelector(t *testing.T) {
	t.Parallel()

	html := `<html><body><nav>menu</nav><div id="post"><p>the story</p></div></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{ContentSelector: "#post"})
	require.NoError(t, err)
	require.Contains(t, got, "the story")
	require.NotContains(t, got, "menu")
}

func TestExtract_MissingSelectorFallsBackToBody(t *testing.T) {
	t.Parallel()

	html := `<html><body><p>fallback content</p></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{ContentSelector: "#x"})
	require.NoError(t, err)
	require.Contains(t, got, "fallback content")
}

func TestExtract_SemanticFallbackChain(t *testing.T) {
	t.Parallel()

	html := `<html><body><header>site</header><article><h1>title</h1><p>body text</p></article></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{})
	require.NoError(t, err)
	require.Contains(t, got, "body text")
	require.NotContains(t, got, "site")
}

func TestExtract_RemovalSelectorsApplyInsideRoot(t *testing.T) {
	t.Parallel()

	// The removal selector targets an element nested inside the content
	// root, which only works because extraction happens first.
	html := `<html><body><div id="post"><div class="share">share me</div><p>keep</p></div></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{
		ContentSelector: "#post",
		RemoveSelectors: []string{".share"},
	})
	require.NoError(t, err)
	require.Contains(t, got, "keep")
	require.NotContains(t, got, "share me")
}

func TestExtract_DisallowedTagsStripped(t *testing.T) {
	t.Parallel()

	html := `<html><body><article><p>text</p><script>evil()</script><iframe src="x"></iframe><noscript>ns</noscript></article></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{})
	require.NoError(t, err)
	require.NotContains(t, got, "script")
	require.NotContains(t, got, "iframe")
	require.Contains(t, got, "text")
}

func TestExtract_EmptyLeavesRemoved(t *testing.T) {
	t.Parallel()

	html := `<html><body><article><div class="ad"></div><div><span></span></div><p>real</p><div><img src="a.png"/></div></article></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{})
	require.NoError(t, err)
	require.NotContains(t, got, "ad")
	require.Contains(t, got, "real")
	// Image-bearing wrappers survive even without text.
	require.Contains(t, got, "a.png")
}

func TestExtract_DataAttrAllowList(t *testing.T) {
	t.Parallel()

	html := `<html><body><article><img data-src="lazy.png" data-track="xyz" src="a.png"/><p data-test-id="p1">text</p></article></body></html>`
	got, err := New().Extract(html, feed.ExtractOptions{})
	require.NoError(t, err)
	require.Contains(t, got, `data-src="lazy.png"`)
	require.NotContains(t, got, "data-track")
	require.NotContains(t, got, "data-test-id")
}

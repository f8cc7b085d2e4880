package news

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Beasiswa\n\nDaftar **sekarang** di https://example.com")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Beasiswa</h1>")
	assert.Contains(t, html, "<strong>sekarang</strong>")
	assert.Contains(t, html, `<a href="https://example.com">`)

	html, err = RenderMarkdown("hi <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")

	html, err = RenderMarkdown("  ")
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "line one line two", Preview("line one\n\nline two"))

	long := strings.Repeat("a", 230)
	assert.Equal(t, strings.Repeat("a", 220)+"...", Preview(long))
}

func TestBuildThreads(t *testing.T) {
	comments := []Comment{
		{ID: 1, Content: "first"},
		{ID: 2, Content: "second"},
		{ID: 3, ParentID: null.Int64From(1), Content: "reply to first"},
		{ID: 4, ParentID: null.Int64From(2), Content: "reply to second"},
		{ID: 5, ParentID: null.Int64From(1), Content: "another reply to first"},
		{ID: 6, ParentID: null.Int64From(99), Content: "orphan"},
	}

	threads := BuildThreads(comments)
	require.Len(t, threads, 3)

	assert.Equal(t, int64(1), threads[0].ID)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, int64(3), threads[0].Replies[0].ID)
	assert.Equal(t, int64(5), threads[0].Replies[1].ID)

	assert.Equal(t, int64(2), threads[1].ID)
	require.Len(t, threads[1].Replies, 1)

	assert.Equal(t, int64(6), threads[2].ID)
	assert.Empty(t, threads[2].Replies)

	assert.Empty(t, BuildThreads(nil))
}

package news

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const previewLen = 220

var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		// raw HTML in posts is not trusted: the default renderer omits it
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// RenderMarkdown converts a post's Markdown content to HTML.
func RenderMarkdown(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Preview flattens a post's content on one line, truncated for the feed cards.
func Preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if r := []rune(flat); len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return flat
}

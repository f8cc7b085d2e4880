package program

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenu(t *testing.T) {
	items, err := Menu()
	require.NoError(t, err)
	require.NotEmpty(t, items)

	item, ok := findMenuItem(items, "midline-eval")
	assert.True(t, ok)
	assert.Equal(t, "Midline Evaluation", item.Title)

	_, ok = findMenuItem(items, "nope")
	assert.False(t, ok)
}

func TestParseMenu(t *testing.T) {
	fsys := fstest.MapFS{
		menuPath: {Data: []byte("- slug: a\n  title: A\n  icon: \"x\"\n  description: first\n")},
	}
	items, err := parseMenu(fsys)
	require.NoError(t, err)
	assert.Equal(t, []MenuItem{{Slug: "a", Title: "A", Icon: "x", Description: "first"}}, items)

	_, err = parseMenu(fstest.MapFS{menuPath: {Data: []byte("- slug: [")}})
	assert.Error(t, err)

	_, err = parseMenu(fstest.MapFS{})
	assert.Error(t, err)
}

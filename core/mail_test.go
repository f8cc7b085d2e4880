package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/beasiswa/fs"
)

func TestParseTemplates(t *testing.T) {
	cache, err := parseTemplates(appfs.FS, true)
	require.NoError(t, err)

	for _, name := range []string{"password_reset", "ticket_status"} {
		entry, ok := cache[name]
		require.True(t, ok, name)
		assert.Contains(t, entry, ".txt")
		assert.Contains(t, entry, ".gohtml")
	}
	assert.NotContains(t, cache, "_base")
}

func TestEmailMessage_Render(t *testing.T) {
	cache, err := parseTemplates(appfs.FS, true)
	require.NoError(t, err)

	tmplMu.Lock()
	oldTemplates, oldContext := templates, mailContext
	templates = cache
	mailContext = ContextData{AppName: "Beasiswa", FrontendBaseURL: "http://portal.test"}
	tmplMu.Unlock()
	t.Cleanup(func() {
		tmplMu.Lock()
		templates, mailContext = oldTemplates, oldContext
		tmplMu.Unlock()
	})

	t.Run("templated", func(t *testing.T) {
		msg := EmailMessage{
			TemplateName: "password_reset",
			TemplateData: map[string]interface{}{"Name": "Ani", "UID": "MQ", "Token": "abc-123"},
		}
		require.NoError(t, msg.Render())
		assert.Contains(t, msg.TextContent, "Hi Ani,")
		assert.Contains(t, msg.TextContent, "http://portal.test/password-reset/MQ/abc-123")
		assert.Contains(t, msg.TextContent, "The Beasiswa team")
		assert.NotEmpty(t, msg.HTMLContent)
	})

	t.Run("plain body", func(t *testing.T) {
		msg := EmailMessage{BodyStr: "hello"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "hello", msg.TextContent)
		assert.True(t, msg.HasContent())
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := EmailMessage{TemplateName: "welcome"}
		err := msg.Render()
		require.Error(t, err)
		assert.Equal(t, `email template "welcome" not found`, err.Error())
		assert.False(t, msg.HasContent())
	})
}

package emailsvc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/testutil"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	logger := &testutil.Logger{}
	core.ParseEmailTemplates(conf, logger)
	ResetSentMessages()

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Ani", Address: "ani@test.test"}},
			Subject:      "Ticket #20240105007: Resolved",
			TemplateName: "ticket_status",
			TemplateData: map[string]interface{}{
				"Name": "Ani", "Number": "20240105007", "Title": "Login", "Status": "Resolved", "Note": "fixed", "ID": 7,
			},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
	)

	require.Len(t, SentMessages, 1)
	msg, ok := LastSentMessage()
	require.True(t, ok)
	assert.Contains(t, msg.TextContent, `Your ticket #20240105007 "Login" is now Resolved.`)
	assert.Contains(t, msg.TextContent, "/tickets/7")
	assert.Contains(t, msg.HTMLContent, "20240105007")
	assert.Empty(t, logger.Messages)
}

func TestConsoleService_format(t *testing.T) {
	conf := core.NewTestConfig()
	svc := consoleService{from: conf.DefaultFromEmail(), subjPrefix: "[Beasiswa] "}

	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "ani@test.test"}},
		Subject:     "Hello",
		TextContent: "plain body",
	}
	require.NoError(t, msg.Attach(strings.NewReader("col1,col2"), "data.csv", "text/csv"))

	body, err := svc.format(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Beasiswa] Hello\r\n")
	assert.Contains(t, body, "To: <ani@test.test>\r\n")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "plain body")
	assert.Contains(t, body, "filename=data.csv")
}

func TestSendgridService(t *testing.T) {
	var (
		calls   int32
		payload map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// first attempt fails, the retry succeeds
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	conf := core.NewTestConfig()
	conf.SendgridApiKey = "key"
	logger := &testutil.Logger{}

	svc := NewSendgridService(conf, logger)
	svc.host = srv.URL
	svc.retryDelay = 0

	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: "Ani", Address: "ani@test.test"}},
		Subject: "Hello",
		BodyStr: "plain body",
	})
	svc.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, logger.Messages)
	require.NotNil(t, payload)
	pers := payload["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[Beasiswa] Hello", pers["subject"])
}

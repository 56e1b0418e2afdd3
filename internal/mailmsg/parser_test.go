package mailmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRawMessage(headers map[string]string, body string) []byte {
	var b strings.Builder
	for k, v := range headers {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func TestParse_PlainTextMessage(t *testing.T) {
	raw := buildRawMessage(map[string]string{
		"From":       "Jane Doe <jane@example.com>",
		"Subject":    "Help with my order",
		"Message-Id": "<abc123@example.com>",
		"Content-Type": "text/plain; charset=utf-8",
	}, "Hello, I need help.\r\n")

	msg, err := Parse(42, raw)
	require.NoError(t, err)

	assert.Equal(t, uint32(42), msg.UID)
	assert.Equal(t, "jane@example.com", msg.From)
	assert.Equal(t, "example.com", msg.FromDomain)
	assert.Equal(t, "Help with my order", msg.Subject)
	assert.Equal(t, "<abc123@example.com>", msg.MessageID)
	assert.Contains(t, msg.Body, "Hello, I need help.")
	assert.False(t, msg.IsHTML())
}

func TestParse_EmptyMessage(t *testing.T) {
	_, err := Parse(1, nil)
	assert.Error(t, err)
}

func TestParse_MultipartAlternative(t *testing.T) {
	raw := []byte("From: a@example.com\r\n" +
		"Subject: multi\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"plain body\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n\r\n" +
		"<p>html body</p>\r\n" +
		"--BOUND--\r\n")

	msg, err := Parse(1, raw)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "plain body")
	assert.Contains(t, msg.HTMLBody, "html body")
	assert.Equal(t, "<p>html body</p>", msg.PrimaryBody())
	assert.True(t, msg.IsHTML())
}

func TestUniqueMessageIDs_Dedupes(t *testing.T) {
	got := uniqueMessageIDs("<a@x> <b@x>", "<a@x>")
	assert.Equal(t, []string{"<a@x>", "<b@x>"}, got)
}

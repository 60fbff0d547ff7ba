package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactEmail(tt.in), tt.in)
	}
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "****cdef", RedactToken("mlsn.abcdef"))
	assert.Equal(t, "****", RedactToken("abc"))
}

func TestLogger_RedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, true)

	l.Info("email sent", "to", "john.doe@example.com, jane@example.org", "recipients", 2)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "email sent", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "jo***@example.com, ja***@example.org", entry["to"])
	assert.EqualValues(t, 2, entry["recipients"])
}

func TestLogger_RedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, false)

	l.Warn("bounce", "email", "john.doe@example.com")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "john.doe@example.com", entry["email"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN, true)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Error("request failed", "error", errors.New("boom"))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_OddFieldsIgnored(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, true)

	l.Info("dangling", "key")
	assert.False(t, strings.Contains(buf.String(), `"key"`))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
	assert.Equal(t, "WARN", WARN.String())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("nothing", "email", "a@b.co") })
}

func TestLogger_EmailKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, true)

	l.Info("bulk", "from_email", "garbled", "bulk_email_id", "614470d1588b866d0454f3e2")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "***@***", entry["from_email"])
	assert.Equal(t, "614470d1588b866d0454f3e2", entry["bulk_email_id"])
}

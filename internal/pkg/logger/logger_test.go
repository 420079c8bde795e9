package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO).With("digest")

	l.Debug("hidden")
	l.Info("digest sent", "recipients", "ops.lead@example.com,cmo@example.com", "alerts", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "digest", entry["component"])
	assert.Equal(t, "3", entry["alerts"])
	assert.Equal(t, "op***@example.com,cm***@example.com", entry["recipients"])
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("WARN")
	assert.True(t, ok)
	assert.Equal(t, WARN, l)

	l, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, INFO, l)
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactEmails(t *testing.T) {
	assert.Equal(t, "to: vp***@example.com,***@example.org", RedactEmails("to: vp.sales@example.com,cf@example.org"))
	assert.Equal(t, "no addresses here", RedactEmails("no addresses here"))
}

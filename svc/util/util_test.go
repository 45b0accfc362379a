package util

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"tab\there", "tabhere"},
		{"line\nbreak", "linebreak"},
		{"éclair", "éclair"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.in), "input %q", tt.in)
	}
	long := strings.Repeat("x", maxTitleRunes+50)
	assert.Len(t, CleanTitle(long), maxTitleRunes)
}

func TestRedactIP(t *testing.T) {
	assert.Equal(t, "192.168.1.0", RedactIP("192.168.1.77:5555"))
	assert.Equal(t, "10.0.0.0", RedactIP("10.0.0.9"))
	assert.Equal(t, "2001:db8::", RedactIP("[2001:db8:aaaa:bbbb::1]:443"))
	assert.True(t, strings.HasPrefix(RedactIP("not-an-ip"), "hash:"))
}

func TestRedactURL(t *testing.T) {
	u, err := url.Parse("/paste/abcdEFGH?password=abc&x=1")
	require.NoError(t, err)
	got := RedactURL(u)
	assert.NotContains(t, got, "abc&")
	assert.Contains(t, got, "password=%5BREDACTED%5D")
	assert.Equal(t, "/", RedactURL(&url.URL{Path: "/"}))
	assert.Equal(t, "password=[REDACTED] rest", RedactSecret("password=hunter2 rest"))
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	id := NewRequestID()
	assert.Equal(t, id, GetRequestID(SetRequestID(ctx, id)))
}

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf, "debug")
	defer SetLogOutput(&bytes.Buffer{}, "disabled")
	Info().Str("paste_id", "abcdEFGH").Msg("paste created")
	assert.Contains(t, buf.String(), `"paste_id":"abcdEFGH"`)
	assert.Contains(t, buf.String(), `"service":"pastebin"`)
}

func TestRedactHookFlagsOnly(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf, "info")
	defer SetLogOutput(&bytes.Buffer{}, "disabled")
	Warn().Msg("retry with password=hunter2")
	assert.Contains(t, buf.String(), `"redacted_msg":true`)

	buf.Reset()
	Warn().Msg(RedactSecret("retry with password=hunter2"))
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), `"redacted_msg":true`)
}

package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		limit int
		want  []string
	}{
		{
			name:  "Empty",
			s:     "",
			limit: 10,
			want:  nil,
		},
		{
			name:  "Fits",
			s:     "one\ntwo",
			limit: 10,
			want:  []string{"one\ntwo"},
		},
		{
			name:  "Splits on lines",
			s:     "12345\n67890\nabc",
			limit: 11,
			want:  []string{"12345\n67890", "abc"},
		},
		{
			name:  "Hard split of a long line",
			s:     "abcdefghij",
			limit: 4,
			want:  []string{"abcd", "efgh", "ij"},
		},
		{
			name:  "Counts runes, not bytes",
			s:     "привет",
			limit: 6,
			want:  []string{"привет"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMessage(tt.s, tt.limit))
		})
	}
}

func TestSplitMessageKeepsEverything(t *testing.T) {
	text := strings.Repeat("line of server info\n", 500)
	parts := SplitMessage(text, TelegramMessageLimit)
	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), TelegramMessageLimit)
	}
	assert.Equal(t, strings.TrimSuffix(text, "\n"), strings.TrimSuffix(strings.Join(parts, "\n"), "\n"))
}

func TestQRCode(t *testing.T) {
	png, err := QRCode("hy2://secret@example.com:443?sni=example.com#555_1700000000000")
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

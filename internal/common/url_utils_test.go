package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrigin(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "https://example.com/path?q=1", "https://example.com", false},
		{"with port", "http://localhost:8085/login", "http://localhost:8085", false},
		{"no path", "https://example.com", "https://example.com", false},
		{"missing scheme", "example.com/login", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Origin(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, SameOrigin("https://example.com/a", "https://example.com/b"))
	assert.True(t, SameOrigin("https://Example.com/a", "https://example.COM/b"))
	assert.False(t, SameOrigin("https://example.com", "http://example.com"))
	assert.False(t, SameOrigin("https://example.com", "https://example.com:8443"))
	assert.False(t, SameOrigin("not a url", "https://example.com"))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "http://example.com", NormalizeURL("http://example.com"))
	assert.Equal(t, "", NormalizeURL("  "))
}

func TestNewRequestID(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "req_")
}

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsFingerprint(t *testing.T) {
	creds := Credentials{Username: "alice", Password: "secret-one"}

	t.Run("excludes password", func(t *testing.T) {
		other := Credentials{Username: "alice", Password: "different-secret"}
		assert.Equal(t, creds.Fingerprint("https://example.com"), other.Fingerprint("https://example.com"))
	})

	t.Run("varies by origin", func(t *testing.T) {
		assert.NotEqual(t,
			creds.Fingerprint("https://example.com"),
			creds.Fingerprint("https://other.com"))
	})

	t.Run("varies by username", func(t *testing.T) {
		other := Credentials{Username: "bob", Password: "secret-one"}
		assert.NotEqual(t,
			creds.Fingerprint("https://example.com"),
			other.Fingerprint("https://example.com"))
	})

	t.Run("origin case insensitive", func(t *testing.T) {
		assert.Equal(t,
			creds.Fingerprint("https://Example.COM"),
			creds.Fingerprint("https://example.com"))
	})

	t.Run("is hex encoded sha256", func(t *testing.T) {
		fp := creds.Fingerprint("https://example.com")
		assert.Len(t, fp, 64)
	})
}

func TestCredentialsStringRedactsPassword(t *testing.T) {
	creds := Credentials{Username: "alice", Password: "hunter2"}
	s := creds.String()
	assert.Contains(t, s, "alice")
	assert.NotContains(t, s, "hunter2")
}

func TestSessionExpired(t *testing.T) {
	t.Run("nil session is expired", func(t *testing.T) {
		var s *Session
		assert.True(t, s.Expired())
	})

	t.Run("fresh session is live", func(t *testing.T) {
		s := &Session{CreatedAt: time.Now(), TTL: time.Hour}
		assert.False(t, s.Expired())
	})

	t.Run("old session is expired", func(t *testing.T) {
		s := &Session{CreatedAt: time.Now().Add(-2 * time.Hour), TTL: time.Hour}
		assert.True(t, s.Expired())
	})
}

func TestFieldKindValid(t *testing.T) {
	for _, kind := range []FieldKind{
		FieldKindText, FieldKindEmail, FieldKindPassword, FieldKindNumber,
		FieldKindDate, FieldKindSelect, FieldKindCheckbox, FieldKindButton,
		FieldKindMenu, FieldKindTable, FieldKindList,
	} {
		assert.True(t, kind.Valid(), string(kind))
	}
	assert.False(t, FieldKind("textarea").Valid())
	assert.False(t, FieldKind("").Valid())
	assert.False(t, FieldKind(strings.ToUpper(string(FieldKindText))).Valid())
}

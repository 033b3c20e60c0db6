package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginSnapshot() *PageSnapshot {
	return &PageSnapshot{
		URL:   "https://example.com/login",
		Title: "Login",
		Elements: []DOMElement{
			{Index: 0, Tag: "form", Attributes: map[string]string{"action": "/login"}, Visible: true, Parent: -1, Selector: "form"},
			{Index: 1, Tag: "input", Attributes: map[string]string{"type": "text", "name": "username", "id": "user"}, Visible: true, Parent: 0, Selector: "#user"},
			{Index: 2, Tag: "input", Attributes: map[string]string{"type": "password", "name": "password"}, Visible: true, Parent: 0, Selector: `input[name="password"]`},
			{Index: 3, Tag: "button", Attributes: map[string]string{"type": "submit"}, Text: "Entrar", Visible: true, Parent: 0, Selector: "form > button"},
		},
	}
}

func TestResolve(t *testing.T) {
	snapshot := loginSnapshot()

	t.Run("by id", func(t *testing.T) {
		matches := snapshot.Resolve("#user")
		require.Len(t, matches, 1)
		assert.Equal(t, "input", matches[0].Tag)
	})

	t.Run("by tag and attribute", func(t *testing.T) {
		matches := snapshot.Resolve(`input[name="password"]`)
		require.Len(t, matches, 1)
		assert.Equal(t, "password", matches[0].Attr("type"))
	})

	t.Run("by exact capture selector", func(t *testing.T) {
		matches := snapshot.Resolve("form > button")
		require.Len(t, matches, 1)
		assert.Equal(t, "button", matches[0].Tag)
	})

	t.Run("by bare tag", func(t *testing.T) {
		matches := snapshot.Resolve("input")
		assert.Len(t, matches, 2)
	})

	t.Run("comma union", func(t *testing.T) {
		matches := snapshot.Resolve("button, form")
		assert.Len(t, matches, 2)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, snapshot.Resolve("#missing"))
		assert.Empty(t, snapshot.Resolve("table"))
	})
}

func TestInteractiveCount(t *testing.T) {
	snapshot := loginSnapshot()
	// form is not interactive, the two inputs and the button are
	assert.Equal(t, 3, snapshot.InteractiveCount())

	snapshot.Elements[1].Visible = false
	assert.Equal(t, 2, snapshot.InteractiveCount())
}

func TestEmpty(t *testing.T) {
	assert.True(t, (&PageSnapshot{}).Empty())
	assert.False(t, loginSnapshot().Empty())
}

package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/models"
)

func TestDegradeCoversRecognizedTags(t *testing.T) {
	snapshot := &models.PageSnapshot{
		Elements: []models.DOMElement{
			element(0, "table", "div > table", nil),
			element(1, "ul", "div > ul", nil),
			element(2, "input", `input[name="q"]`, map[string]string{"name": "q"}),
			element(3, "button", "button", nil),
			element(4, "select", "select", nil),
		},
	}

	fields := NewDegrader(arbor.NewLogger()).Degrade(snapshot)
	require.Len(t, fields, 5)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
		assert.Equal(t, degradedConfidence, f.Confidence)
		assert.NotEmpty(t, snapshot.Resolve(f.Selector), "selector %q must resolve", f.Selector)
	}
	assert.Equal(t, []string{"any_table", "any_list", "any_input", "any_button", "any_select"}, names)
}

func TestDegradeNonEmptyForAnyRecognizedTag(t *testing.T) {
	snapshot := &models.PageSnapshot{
		Elements: []models.DOMElement{
			element(0, "input", "input", map[string]string{"type": "text"}),
		},
	}
	fields := NewDegrader(arbor.NewLogger()).Degrade(snapshot)
	require.Len(t, fields, 1)
	assert.Equal(t, "any_input", fields[0].Name)
	assert.Equal(t, models.FieldKindText, fields[0].Kind)
}

func TestDegradeCoversTextareaOnlyPage(t *testing.T) {
	snapshot := &models.PageSnapshot{
		Elements: []models.DOMElement{
			element(0, "textarea", "textarea", map[string]string{"name": "comment"}),
		},
	}
	fields := NewDegrader(arbor.NewLogger()).Degrade(snapshot)
	require.Len(t, fields, 1)
	assert.Equal(t, "any_textarea", fields[0].Name)
	assert.Equal(t, models.FieldKindText, fields[0].Kind)
	assert.Equal(t, degradedConfidence, fields[0].Confidence)
	assert.NotEmpty(t, snapshot.Resolve(fields[0].Selector))
}

func TestDegradeEmptyWhenNothingRecognized(t *testing.T) {
	snapshot := &models.PageSnapshot{
		Elements: []models.DOMElement{
			element(0, "a", "a", map[string]string{"href": "/"}),
			element(1, "nav", "nav", nil),
		},
	}
	assert.Empty(t, NewDegrader(arbor.NewLogger()).Degrade(snapshot))
}

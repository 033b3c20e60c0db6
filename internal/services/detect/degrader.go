package detect

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/models"
)

// Degrader produces the guaranteed floor: a minimal, low-specificity field
// list built from generic selectors. It is invoked only when the primary
// pipeline produced nothing usable and the page itself rendered.
type Degrader struct {
	logger arbor.ILogger
}

// NewDegrader creates a fallback degrader
func NewDegrader(logger arbor.ILogger) *Degrader {
	return &Degrader{logger: logger}
}

// degradedConfidence marks fallback candidates as low-information
const degradedConfidence = 0.10

// Degrade returns generic candidates covering whatever element kinds the
// snapshot contains. The result is non-empty whenever the snapshot holds at
// least one element of a recognized tag.
func (d *Degrader) Degrade(snapshot *models.PageSnapshot) []models.FieldCandidate {
	var fields []models.FieldCandidate

	hasTable := false
	hasList := false
	tags := make(map[string]bool)
	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		switch el.Tag {
		case "table":
			hasTable = true
		case "ul", "ol":
			hasList = true
		case "input", "button", "select", "textarea":
			tags[el.Tag] = true
		}
	}

	if hasTable {
		fields = append(fields, models.FieldCandidate{
			Name:       "any_table",
			Kind:       models.FieldKindTable,
			Selector:   "table",
			Confidence: degradedConfidence,
		})
	}
	if hasList {
		fields = append(fields, models.FieldCandidate{
			Name:       "any_list",
			Kind:       models.FieldKindList,
			Selector:   "ul, ol",
			Confidence: degradedConfidence,
		})
	}

	// One catch-all per remaining interactive tag kind, in a fixed order
	catchAll := []struct {
		tag  string
		kind models.FieldKind
	}{
		{"input", models.FieldKindText},
		{"button", models.FieldKindButton},
		{"select", models.FieldKindSelect},
		{"textarea", models.FieldKindText},
	}
	for _, entry := range catchAll {
		if tags[entry.tag] {
			fields = append(fields, models.FieldCandidate{
				Name:       "any_" + entry.tag,
				Kind:       entry.kind,
				Selector:   entry.tag,
				Confidence: degradedConfidence,
			})
		}
	}

	d.logger.Debug().
		Int("field_count", len(fields)).
		Msg("Produced degraded field set")

	return fields
}

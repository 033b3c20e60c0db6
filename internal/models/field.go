package models

import (
	"time"
)

// FieldKind is the closed set of semantic field types the engine emits
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindEmail    FieldKind = "email"
	FieldKindPassword FieldKind = "password"
	FieldKindNumber   FieldKind = "number"
	FieldKindDate     FieldKind = "date"
	FieldKindSelect   FieldKind = "select"
	FieldKindCheckbox FieldKind = "checkbox"
	FieldKindButton   FieldKind = "button"
	FieldKindMenu     FieldKind = "menu"
	FieldKindTable    FieldKind = "table"
	FieldKindList     FieldKind = "list"
)

// Valid reports whether the kind is a member of the closed set
func (k FieldKind) Valid() bool {
	switch k {
	case FieldKindText, FieldKindEmail, FieldKindPassword, FieldKindNumber,
		FieldKindDate, FieldKindSelect, FieldKindCheckbox, FieldKindButton,
		FieldKindMenu, FieldKindTable, FieldKindList:
		return true
	}
	return false
}

// SelectOption is one choice offered by a select field
type SelectOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// FieldCandidate is a classified, selector-addressable field derived from one
// or more DOM elements
type FieldCandidate struct {
	Name        string         `json:"name"`
	Kind        FieldKind      `json:"type"`
	Selector    string         `json:"selector"`
	Label       string         `json:"label,omitempty"`
	Description string         `json:"description,omitempty"`
	Confidence  float64        `json:"confidence"`
	Columns     []string       `json:"columns,omitempty"` // Table column headers / list item labels, in order
	Options     []SelectOption `json:"options,omitempty"` // Select choices
}

// DetectionResult is the terminal output of one detection request
type DetectionResult struct {
	Success   bool             `json:"success"`
	Fields    []FieldCandidate `json:"fields"`
	Degraded  bool             `json:"degraded"` // True when the fallback path produced the fields
	Message   string           `json:"message"`
	Duration  time.Duration    `json:"duration"`
	RequestID string           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
}

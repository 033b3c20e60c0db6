package models

import (
	"strings"
	"time"
)

// DOMElement is a single interactive or data-bearing element captured from a
// rendered page. Elements are ephemeral: produced fresh per page load, never
// persisted.
type DOMElement struct {
	Index      int               `json:"index"`       // Position in document order
	Tag        string            `json:"tag"`         // Lowercase tag name
	Attributes map[string]string `json:"attributes"`  // Attribute name -> value
	Text       string            `json:"text"`        // Visible text, truncated at capture
	Role       string            `json:"role"`        // Explicit ARIA role, if any
	Visible    bool              `json:"visible"`     // Element was visible at capture time
	Depth      int               `json:"depth"`       // Nesting depth from body
	Parent     int               `json:"parent"`      // Index of nearest captured ancestor, -1 if none
	Selector   string            `json:"selector"`    // Unique CSS selector computed at capture
	Label      string            `json:"label"`       // Resolved label text (label[for], enclosing label, aria-label, ...)
	HTML       string            `json:"html"`        // Outer HTML; populated for table/list containers only
}

// Attr returns an attribute value, or "" if absent
func (e *DOMElement) Attr(name string) string {
	return e.Attributes[name]
}

// IsInteractive reports whether the element accepts user input
func (e *DOMElement) IsInteractive() bool {
	switch e.Tag {
	case "input", "select", "textarea", "button":
		return true
	}
	return e.Role == "button" || e.Role == "menu" || e.Role == "menubar"
}

// PageSnapshot is a point-in-time structured extraction of a rendered page
type PageSnapshot struct {
	URL        string       `json:"url"`
	Title      string       `json:"title"`
	BodyText   string       `json:"body_text"`
	Elements   []DOMElement `json:"elements"`
	CapturedAt time.Time    `json:"captured_at"`
}

// InteractiveCount returns the number of visible interactive elements
func (s *PageSnapshot) InteractiveCount() int {
	count := 0
	for i := range s.Elements {
		if s.Elements[i].Visible && s.Elements[i].IsInteractive() {
			count++
		}
	}
	return count
}

// Empty reports whether the snapshot captured no elements at all
func (s *PageSnapshot) Empty() bool {
	return len(s.Elements) == 0
}

// Resolve returns the elements addressed by a selector within this snapshot.
// It understands the selector forms the engine itself emits: exact capture
// selectors, #id, tag[name="..."] and bare tag names (comma-separated lists
// resolve to the union). Used to uphold the invariant that every emitted
// FieldCandidate selector resolves against its originating snapshot.
func (s *PageSnapshot) Resolve(selector string) []*DOMElement {
	var matched []*DOMElement
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		for i := range s.Elements {
			if elementMatches(&s.Elements[i], part) {
				matched = append(matched, &s.Elements[i])
			}
		}
	}
	return matched
}

func elementMatches(e *DOMElement, selector string) bool {
	if e.Selector == selector {
		return true
	}
	if strings.HasPrefix(selector, "#") {
		return e.Attr("id") == selector[1:]
	}
	// tag[attr="value"]
	if open := strings.Index(selector, "["); open > 0 && strings.HasSuffix(selector, "]") {
		if e.Tag != selector[:open] {
			return false
		}
		expr := selector[open+1 : len(selector)-1]
		eq := strings.Index(expr, "=")
		if eq < 0 {
			return e.Attr(expr) != ""
		}
		name := expr[:eq]
		value := strings.Trim(expr[eq+1:], `"'`)
		return e.Attr(name) == value
	}
	return e.Tag == selector
}

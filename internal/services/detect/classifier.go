// Package detect implements the field detection engine: the heuristic
// classifier, the model-assisted refiner, the fallback degrader and the
// orchestrator that sequences them.
package detect

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/models"
)

// Rule cascade confidence values. The explicit input type is the strongest
// single signal; lexical matches on name/id/label add to whatever the
// structural rules produced.
const (
	confidenceExplicitType = 0.95
	confidenceSemanticTag  = 0.80
	lexicalBonus           = 0.20
	headerRowBonus         = 0.15
)

// minListItems is the repetition count at which sibling structures are
// grouped as a list
const minListItems = 3

// lexicalPattern maps substrings of name/id/label/placeholder text to a
// canonical semantic name
type lexicalPattern struct {
	canonical string
	words     []string
}

var lexicalPatterns = []lexicalPattern{
	{"email", []string{"email", "e-mail", "mail"}},
	{"password", []string{"senha", "password", "passwd", "pwd"}},
	{"document", []string{"cpf", "cnpj", "document"}},
	{"username", []string{"usuario", "username", "login", "nome", "name", "user"}},
	{"phone", []string{"telefone", "celular", "phone", "tel"}},
	{"date", []string{"nascimento", "date", "data"}},
	{"amount", []string{"valor", "price", "amount", "total"}},
	{"search", []string{"busca", "pesquisa", "search", "query"}},
}

// Classifier maps DOM elements to semantic field candidates using structural
// and lexical rules. Classification is a pure function over the snapshot.
type Classifier struct {
	floor  float64
	logger arbor.ILogger
}

// NewClassifier creates a classifier that drops candidates scoring below floor
func NewClassifier(floor float64, logger arbor.ILogger) *Classifier {
	return &Classifier{
		floor:  floor,
		logger: logger,
	}
}

// Classify derives an ordered sequence of field candidates from a snapshot.
// Scalar fields preserve DOM document order; table and list candidates are
// appended after them. Elements nested inside a classified table or list
// container are not emitted separately.
func (c *Classifier) Classify(snapshot *models.PageSnapshot) []models.FieldCandidate {
	containers := c.findContainers(snapshot)

	var scalars []models.FieldCandidate
	var grouped []models.FieldCandidate
	seen := make(map[string]bool)

	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		if !el.Visible {
			continue
		}
		if c.insideContainer(snapshot, el, containers) {
			continue
		}

		var candidate *models.FieldCandidate
		if containers[el.Index] {
			candidate = c.classifyContainer(el)
		} else {
			candidate = c.classifyScalar(el)
		}
		if candidate == nil {
			continue
		}
		if candidate.Confidence < c.floor {
			continue
		}
		if seen[candidate.Selector] {
			continue
		}
		seen[candidate.Selector] = true

		if candidate.Kind == models.FieldKindTable || candidate.Kind == models.FieldKindList {
			grouped = append(grouped, *candidate)
		} else {
			scalars = append(scalars, *candidate)
		}
	}

	result := append(scalars, grouped...)

	c.logger.Debug().
		Int("element_count", len(snapshot.Elements)).
		Int("scalar_fields", len(scalars)).
		Int("grouped_fields", len(grouped)).
		Msg("Classification complete")

	return result
}

// findContainers returns the indices of elements classified as table or list
// containers
func (c *Classifier) findContainers(snapshot *models.PageSnapshot) map[int]bool {
	containers := make(map[int]bool)
	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		if !el.Visible {
			continue
		}
		switch el.Tag {
		case "table":
			containers[el.Index] = true
		case "ul", "ol":
			if countListItems(el.HTML) >= minListItems {
				containers[el.Index] = true
			}
		}
	}
	return containers
}

// insideContainer walks the captured-ancestor chain looking for a container
func (c *Classifier) insideContainer(snapshot *models.PageSnapshot, el *models.DOMElement, containers map[int]bool) bool {
	parent := el.Parent
	for parent >= 0 && parent < len(snapshot.Elements) {
		if containers[parent] {
			return true
		}
		parent = snapshot.Elements[parent].Parent
	}
	return false
}

// classifyScalar applies the rule cascade to one non-container element.
// The first matching rule decides the kind; lexical matches add confidence.
func (c *Classifier) classifyScalar(el *models.DOMElement) *models.FieldCandidate {
	var kind models.FieldKind
	var confidence float64

	switch el.Tag {
	case "input":
		kind, confidence = classifyInput(el)
	case "select":
		kind, confidence = models.FieldKindSelect, confidenceSemanticTag
	case "textarea":
		kind, confidence = models.FieldKindText, confidenceSemanticTag
	case "button":
		kind, confidence = models.FieldKindButton, confidenceSemanticTag
	case "nav":
		kind, confidence = models.FieldKindMenu, confidenceSemanticTag
	default:
		switch el.Role {
		case "button":
			kind, confidence = models.FieldKindButton, confidenceSemanticTag
		case "menu", "menubar":
			kind, confidence = models.FieldKindMenu, confidenceSemanticTag
		default:
			return nil
		}
	}
	if kind == "" {
		return nil
	}

	name, matched := semanticName(el, kind)
	if matched {
		confidence += lexicalBonus
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	candidate := &models.FieldCandidate{
		Name:        name,
		Kind:        kind,
		Selector:    el.Selector,
		Label:       el.Label,
		Description: description(el),
		Confidence:  confidence,
	}

	if kind == models.FieldKindSelect {
		candidate.Options = extractSelectOptions(el.HTML)
	}

	return candidate
}

// classifyInput maps an input element's type attribute to a field kind
func classifyInput(el *models.DOMElement) (models.FieldKind, float64) {
	switch strings.ToLower(el.Attr("type")) {
	case "email":
		return models.FieldKindEmail, confidenceExplicitType
	case "password":
		return models.FieldKindPassword, confidenceExplicitType
	case "number":
		return models.FieldKindNumber, confidenceExplicitType
	case "date", "datetime-local", "time":
		return models.FieldKindDate, confidenceExplicitType
	case "checkbox", "radio":
		return models.FieldKindCheckbox, confidenceExplicitType
	case "submit", "button", "reset":
		return models.FieldKindButton, confidenceSemanticTag
	case "hidden", "file":
		return "", 0
	default:
		// text, search, tel, url or missing type
		return models.FieldKindText, confidenceSemanticTag
	}
}

// classifyContainer turns a table or repeating list element into one grouped
// candidate
func (c *Classifier) classifyContainer(el *models.DOMElement) *models.FieldCandidate {
	switch el.Tag {
	case "table":
		columns, hasHeader := extractTableColumns(el.HTML)
		confidence := confidenceSemanticTag
		if hasHeader {
			confidence += headerRowBonus
		}
		name := el.Attr("id")
		if name == "" {
			name = el.Label
		}
		if name == "" {
			name = fmt.Sprintf("table_%d", el.Index)
		}
		return &models.FieldCandidate{
			Name:       name,
			Kind:       models.FieldKindTable,
			Selector:   el.Selector,
			Label:      el.Label,
			Confidence: confidence,
			Columns:    columns,
		}
	case "ul", "ol":
		items := extractListItems(el.HTML)
		name := el.Attr("id")
		if name == "" {
			name = fmt.Sprintf("list_%d", el.Index)
		}
		return &models.FieldCandidate{
			Name:       name,
			Kind:       models.FieldKindList,
			Selector:   el.Selector,
			Label:      el.Label,
			Confidence: confidenceSemanticTag,
			Columns:    items,
		}
	}
	return nil
}

// semanticName derives a human-readable name for the candidate and reports
// whether a lexical pattern matched
func semanticName(el *models.DOMElement, kind models.FieldKind) (string, bool) {
	haystack := strings.ToLower(strings.Join([]string{
		el.Attr("name"), el.Attr("id"), el.Label, el.Attr("placeholder"),
	}, " "))

	matched := ""
	for _, pattern := range lexicalPatterns {
		for _, word := range pattern.words {
			if strings.Contains(haystack, word) {
				matched = pattern.canonical
				break
			}
		}
		if matched != "" {
			break
		}
	}

	if name := el.Attr("name"); name != "" {
		return name, matched != ""
	}
	if id := el.Attr("id"); id != "" {
		return id, matched != ""
	}
	if matched != "" {
		return matched, true
	}
	return fmt.Sprintf("%s_%d", kind, el.Index), false
}

func description(el *models.DOMElement) string {
	if el.Text != "" {
		return el.Text
	}
	if placeholder := el.Attr("placeholder"); placeholder != "" {
		return placeholder
	}
	if title := el.Attr("title"); title != "" {
		return title
	}
	return el.Label
}

// extractTableColumns parses the table outer HTML and returns the header row
// cell text in left-to-right order. Without a header row, columns are
// positional indices.
func extractTableColumns(html string) ([]string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	// Header row: the first tr that contains th cells
	var columns []string
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("th")
		if cells.Length() == 0 {
			return true
		}
		cells.Each(func(_ int, cell *goquery.Selection) {
			columns = append(columns, strings.TrimSpace(cell.Text()))
		})
		return false
	})
	if len(columns) > 0 {
		return columns, true
	}

	// No header row: count cells in the first row and emit positional indices
	cellCount := doc.Find("tr").First().Find("td").Length()
	for i := 0; i < cellCount; i++ {
		columns = append(columns, fmt.Sprintf("%d", i+1))
	}
	return columns, false
}

// extractListItems returns the text of the first items of a list container
func extractListItems(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []string
	doc.Find("li").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= 10 {
			return false
		}
		text := strings.TrimSpace(item.Text())
		if runes := []rune(text); len(runes) > 50 {
			text = string(runes[:50])
		}
		items = append(items, text)
		return true
	})
	return items
}

// countListItems counts direct list items in a ul/ol outer HTML fragment
func countListItems(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	return doc.Find("li").Length()
}

// extractSelectOptions parses a select element's outer HTML into its options
func extractSelectOptions(html string) []models.SelectOption {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var options []models.SelectOption
	doc.Find("option").Each(func(_ int, opt *goquery.Selection) {
		value := opt.AttrOr("value", "")
		text := strings.TrimSpace(opt.Text())
		if text == "" {
			text = value
		}
		if value == "" {
			value = text
		}
		if value != "" || text != "" {
			options = append(options, models.SelectOption{Value: value, Text: text})
		}
	})
	return options
}

// MaxConfidence returns the highest confidence among candidates, 0 when empty
func MaxConfidence(candidates []models.FieldCandidate) float64 {
	max := 0.0
	for _, candidate := range candidates {
		if candidate.Confidence > max {
			max = candidate.Confidence
		}
	}
	return max
}

package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"golang.org/x/time/rate"
)

const refinerSystemPrompt = `You classify web page form fields for a scraper.
You receive a JSON array of detected field candidates with their selector,
current type guess and the element attributes. Respond with a JSON array of
objects {"selector": "...", "type": "...", "name": "..."} for the candidates
you can improve. Allowed types: text, email, password, number, date, select,
checkbox, button, menu, table, list. Respond with JSON only, no prose.`

// Refiner re-scores and relabels low-confidence candidates using the
// configured completion provider. It only adjusts candidates that already
// exist: it may raise confidence or change kind and name, never fabricate
// selectors. Any provider failure is absorbed and the input returned
// unchanged.
type Refiner struct {
	llm       interfaces.LLMService
	limiter   *rate.Limiter
	threshold float64
	logger    arbor.ILogger
}

// NewRefiner creates a refiner backed by the given completion provider.
// A nil provider disables refining entirely.
func NewRefiner(llm interfaces.LLMService, callInterval rate.Limit, threshold float64, logger arbor.ILogger) *Refiner {
	return &Refiner{
		llm:       llm,
		limiter:   rate.NewLimiter(callInterval, 1),
		threshold: threshold,
		logger:    logger,
	}
}

// Enabled reports whether a completion provider is configured
func (r *Refiner) Enabled() bool {
	return r.llm != nil
}

// refinement is the per-candidate adjustment returned by the model
type refinement struct {
	Selector string `json:"selector"`
	Type     string `json:"type"`
	Name     string `json:"name"`
}

// candidateSummary is what the model sees per candidate: attributes and text
// only, never raw page markup
type candidateSummary struct {
	Selector   string            `json:"selector"`
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	Label      string            `json:"label,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Refine consults the model about low-confidence candidates and applies the
// returned relabels. On any failure the input candidates are returned
// unchanged; this stage is best-effort and never fatal.
func (r *Refiner) Refine(ctx context.Context, snapshot *models.PageSnapshot, candidates []models.FieldCandidate) []models.FieldCandidate {
	if !r.Enabled() || len(candidates) == 0 {
		return candidates
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Refiner rate limit wait cancelled, skipping")
		return candidates
	}

	prompt, err := r.buildPrompt(snapshot, candidates)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to build refiner prompt, skipping")
		return candidates
	}

	response, err := r.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: refinerSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("Refiner call failed, using candidates unchanged")
		return candidates
	}

	refinements, err := parseRefinements(response)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Refiner returned unparseable output, using candidates unchanged")
		return candidates
	}

	return applyRefinements(candidates, refinements, r.threshold, r.logger)
}

func (r *Refiner) buildPrompt(snapshot *models.PageSnapshot, candidates []models.FieldCandidate) (string, error) {
	summaries := make([]candidateSummary, 0, len(candidates))
	for _, candidate := range candidates {
		summary := candidateSummary{
			Selector: candidate.Selector,
			Type:     string(candidate.Kind),
			Name:     candidate.Name,
			Label:    candidate.Label,
		}
		if matches := snapshot.Resolve(candidate.Selector); len(matches) > 0 {
			summary.Attributes = matches[0].Attributes
		}
		summaries = append(summaries, summary)
	}

	payload, err := json.Marshal(summaries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidate summaries: %w", err)
	}

	return fmt.Sprintf("Page title: %s\nCandidates:\n%s", snapshot.Title, string(payload)), nil
}

// parseRefinements extracts the JSON array from the model response, tolerating
// surrounding prose or code fences
func parseRefinements(response string) ([]refinement, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var refinements []refinement
	if err := json.Unmarshal([]byte(response[start:end+1]), &refinements); err != nil {
		return nil, fmt.Errorf("failed to parse refinements: %w", err)
	}
	return refinements, nil
}

// applyRefinements merges model output into the candidate list. Refinements
// for unknown selectors are discarded: the model may not introduce fields.
func applyRefinements(candidates []models.FieldCandidate, refinements []refinement, threshold float64, logger arbor.ILogger) []models.FieldCandidate {
	bySelector := make(map[string]*refinement, len(refinements))
	for i := range refinements {
		bySelector[refinements[i].Selector] = &refinements[i]
	}

	applied := 0
	result := make([]models.FieldCandidate, len(candidates))
	for i, candidate := range candidates {
		if ref, ok := bySelector[candidate.Selector]; ok {
			kind := models.FieldKind(ref.Type)
			if kind.Valid() {
				candidate.Kind = kind
			}
			if ref.Name != "" {
				candidate.Name = ref.Name
			}
			// A model confirmation promotes the candidate past the
			// threshold; confidence never decreases here
			if candidate.Confidence < threshold {
				candidate.Confidence = threshold
			}
			applied++
		}
		result[i] = candidate
	}

	logger.Debug().
		Int("refinements_returned", len(refinements)).
		Int("refinements_applied", applied).
		Msg("Applied model refinements")

	return result
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

const defaultConfidence = 0.5

// ErrNoJSON is returned when a response carries no JSON object
var ErrNoJSON = errors.New("response contains no JSON object")

// extractJSON strips markdown fences and any prose around the outermost object
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

func decodeQuery(raw string) (*model.StructuredQuery, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode query analysis: %w", err)
	}

	var q model.StructuredQuery
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		return nil, fmt.Errorf("decode query analysis: %w", err)
	}

	q.Tickers = upperUnique(q.Tickers)
	q.SuggestedTickers = upperUnique(q.SuggestedTickers)
	if len(q.Tickers) > 0 {
		q.SuggestedTickers = nil
	}
	q.DocumentTypes = canonicalForms(q.DocumentTypes)

	if !q.QueryType.Valid() {
		q.QueryType = inferQueryType(q)
	}
	if q.ComplexityScore < 0 {
		q.ComplexityScore = 0
	}
	if q.ComplexityScore > 1 {
		q.ComplexityScore = 1
	}
	return &q, nil
}

func inferQueryType(q model.StructuredQuery) model.QueryType {
	switch {
	case len(q.Tickers) > 1:
		return model.QueryMultiTicker
	case len(q.Tickers) == 1:
		return model.QuerySingleTicker
	case len(q.Sectors) > 0:
		return model.QueryIndustryAnalysis
	default:
		return model.QueryThematicAnalysis
	}
}

func upperUnique(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// canonicalForms maps spellings like "def14a" or "Form 4" onto known form
// types and drops anything unrecognised
func canonicalForms(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range in {
		f = strings.ToUpper(strings.Join(strings.Fields(f), " "))
		f = strings.TrimPrefix(f, "FORM ")
		if f == "DEF14A" {
			f = model.FormDEF14A
		}
		if model.IsKnownForm(f) && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

type answerPayload struct {
	Answer            string         `json:"answer"`
	ConfidenceScore   *float64       `json:"confidence_score"`
	Methodology       string         `json:"methodology"`
	Limitations       []string       `json:"limitations"`
	KeyMetrics        map[string]any `json:"key_metrics"`
	Recommendations   []string       `json:"recommendations"`
	TimePeriodCovered string         `json:"time_period_covered"`
}

// decodeAnswer accepts either the requested JSON object or plain prose
func decodeAnswer(raw string) (*model.Answer, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("synthesis returned an empty response")
	}
	prose := &model.Answer{Answer: text, ConfidenceScore: defaultConfidence}

	body, err := extractJSON(raw)
	if errors.Is(err, ErrNoJSON) {
		return prose, nil
	}

	var p answerPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		// braces inside prose are not a malformed object
		if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "```") {
			return prose, nil
		}
		return nil, fmt.Errorf("decode synthesis: %w", err)
	}
	if strings.TrimSpace(p.Answer) == "" {
		return nil, fmt.Errorf("synthesis returned no answer text")
	}

	a := &model.Answer{
		Answer:            strings.TrimSpace(p.Answer),
		ConfidenceScore:   defaultConfidence,
		Methodology:       p.Methodology,
		Limitations:       p.Limitations,
		Recommendations:   p.Recommendations,
		TimePeriodCovered: p.TimePeriodCovered,
	}
	if p.ConfidenceScore != nil {
		a.ConfidenceScore = min(max(*p.ConfidenceScore, 0), 1)
	}
	if len(p.KeyMetrics) > 0 {
		a.KeyMetrics = make(map[string]string, len(p.KeyMetrics))
		for k, v := range p.KeyMetrics {
			if s, ok := v.(string); ok {
				a.KeyMetrics[k] = s
				continue
			}
			a.KeyMetrics[k] = fmt.Sprint(v)
		}
	}
	return a, nil
}

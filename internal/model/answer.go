package model

// Answer is the structured result for one question.
// Answer, Sources, Citations and UsedEvidenceIDs are owned by citation
// reconciliation; every other field passes through from synthesis.
type Answer struct {
	Answer            string            `json:"answer"`
	ConfidenceScore   float64           `json:"confidence_score"`
	Sources           []Source          `json:"sources"`
	Citations         []string          `json:"citations"` // e.g., ["C1", "C2"]
	Methodology       string            `json:"methodology,omitempty"`
	Limitations       []string          `json:"limitations,omitempty"`
	CompaniesAnalyzed []string          `json:"companies_analyzed"`
	FilingTypesUsed   []string          `json:"filing_types_used"`
	TimePeriodCovered string            `json:"time_period_covered,omitempty"`
	KeyMetrics        map[string]string `json:"key_metrics,omitempty"`
	Recommendations   []string          `json:"recommendations,omitempty"`
	ToolUsed          string            `json:"tool_used,omitempty"`
	UsedEvidenceIDs   []string          `json:"used_evidence_ids"`
}

// ErrorAnswer converts a failure that escaped the per-question flow into
// a zero-confidence answer carrying the error description
func ErrorAnswer(err error) *Answer {
	return &Answer{
		Answer:            "Error: " + err.Error(),
		ConfidenceScore:   0,
		Sources:           []Source{},
		CompaniesAnalyzed: []string{},
		FilingTypesUsed:   []string{},
		Limitations:       []string{"Internal error during analysis."},
	}
}

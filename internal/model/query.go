package model

// StructuredQuery is the classifier's interpretation of a research question.
// It is consumed read-only by retrieval.
type StructuredQuery struct {
	Tickers          []string  `json:"tickers"`           // Explicit tickers, ordered by relevance
	TimePeriods      []string  `json:"time_periods"`      // e.g., "2023", "recent", "last 5 years"
	DocumentTypes    []string  `json:"document_types"`    // Requested SEC form types
	QueryType        QueryType `json:"query_type"`        // Query classification
	Sectors          []string  `json:"sectors"`           // Industry sectors, if implied
	Keywords         []string  `json:"keywords"`          // Key search terms
	ComplexityScore  float64   `json:"complexity_score"`  // 0.0-1.0
	SuggestedTickers []string  `json:"suggested_tickers"` // Only populated when Tickers is empty
	SelectionReason  string    `json:"selection_reason"`
}

// QueryType classifies a research question
type QueryType string

const (
	QuerySingleTicker     QueryType = "single_ticker"
	QueryMultiTicker      QueryType = "multi_ticker_comparison"
	QueryTemporal         QueryType = "temporal_analysis"
	QueryMultiDimensional QueryType = "multi_dimensional"
	QueryIndustryAnalysis QueryType = "industry_analysis"
	QueryThematicAnalysis QueryType = "thematic_analysis"
)

// Valid reports whether t is one of the known query types
func (t QueryType) Valid() bool {
	switch t {
	case QuerySingleTicker, QueryMultiTicker, QueryTemporal,
		QueryMultiDimensional, QueryIndustryAnalysis, QueryThematicAnalysis:
		return true
	}
	return false
}

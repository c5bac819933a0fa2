package llm

import (
	"fmt"
	"strings"
)

const queryAnalysisPrompt = `You classify research questions about US public companies and their SEC filings.

Return a single JSON object with these fields:
- "tickers": ticker symbols named or clearly implied by the question, most relevant first
- "time_periods": periods mentioned, e.g. "2023", "Q2 2024", "recent", "last 5 years"
- "document_types": SEC forms that would answer it, from 10-K, 10-Q, 8-K, DEF 14A, 3, 4, 5
- "query_type": one of single_ticker, multi_ticker_comparison, temporal_analysis, multi_dimensional, industry_analysis, thematic_analysis
- "sectors": industry sectors the question concerns
- "keywords": the key search terms
- "complexity_score": number between 0.0 and 1.0
- "suggested_tickers": up to 3 representative tickers, only when "tickers" is empty
- "selection_reason": one sentence explaining any suggested tickers

Form hints:
- risk factors, business description, annual results: 10-K
- quarterly results, management discussion and analysis: 10-Q
- acquisitions, mergers, material events: 8-K
- executive compensation, board, proxy votes: DEF 14A
- insider buying or selling: 4 (and 3, 5 for ownership statements)

Classification:
- one company: single_ticker
- two or more companies compared: multi_ticker_comparison
- change over time for one company: temporal_analysis
- several companies and several aspects: multi_dimensional
- a whole sector: industry_analysis
- a theme across the market with no named company: thematic_analysis

Use empty arrays rather than null. Do not add fields.`

const synthesisPrompt = `You are an equity research analyst answering questions strictly from SEC filing excerpts.

Rules:
- Use only the numbered sources provided. Cite every factual statement inline as [C1], [C2] and so on.
- Never cite a number that is not in the ALLOWED SOURCES list.
- When the sources do not cover part of the question, say so and list it under limitations.
- Quote figures exactly as they appear in the excerpts.

Return a single JSON object with these fields:
- "answer": the answer text with inline [C#] citations
- "confidence_score": number between 0.0 and 1.0
- "methodology": how the sources were used
- "limitations": array of strings
- "key_metrics": object mapping metric name to value as a string
- "recommendations": array of follow-up research suggestions
- "time_period_covered": the period the cited filings cover`

// BuildSynthesisPrompt renders the user message for answer synthesis
func BuildSynthesisPrompt(req SynthesisRequest) string {
	var b strings.Builder

	if req.AllowedSources != "" {
		b.WriteString(req.AllowedSources)
		b.WriteString("\n\n")
	}

	b.WriteString("EVIDENCE:\n")
	if len(req.Evidence) == 0 {
		b.WriteString("(no filing excerpts were retrieved)\n")
	}
	for i, rec := range req.Evidence {
		fmt.Fprintf(&b, "\n[C%d] %s %s %s (%s)\n%s\n", i+1, rec.Ticker, rec.DocumentType, rec.FilingDate, rec.SectionOrSummary(), rec.Content)
	}

	fmt.Fprintf(&b, "\nQUESTION: %s\n", strings.TrimSpace(req.Question))
	return b.String()
}

// Package qa answers one research question end to end: analysis,
// retrieval, synthesis and citation reconciliation.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/filingqa/internal/citation"
	"github.com/ppiankov/filingqa/internal/llm"
	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/retrieval"
)

const (
	noEvidenceNote     = "No filing evidence could be retrieved for this question."
	fallbackSampleNote = "The planned filings yielded nothing; the answer rests on a small fallback sample of one company's filings."
)

// LanguageModel is the subset of llm.Provider the system calls
type LanguageModel interface {
	AnalyzeQuery(ctx context.Context, question string) (*model.StructuredQuery, error)
	Synthesize(ctx context.Context, req llm.SynthesisRequest) (*model.Answer, error)
}

// TickerNormalizer canonicalises tickers from query analysis
type TickerNormalizer interface {
	Normalize(identifiers []string) []string
}

// System orchestrates the per-question flow
type System struct {
	model     LanguageModel
	tickers   TickerNormalizer
	retriever Retriever
	sessionID string
	logger    *slog.Logger
}

// New creates a system with a fresh session id. tickers may be nil to keep
// analysed tickers as returned.
func New(lm LanguageModel, tickers TickerNormalizer, retriever Retriever, logger *slog.Logger) *System {
	sessionID := uuid.NewString()
	return &System{
		model:     lm,
		tickers:   tickers,
		retriever: retriever,
		sessionID: sessionID,
		logger:    logging.OrDefault(logger).With("session", sessionID),
	}
}

// SessionID identifies this system in logs
func (s *System) SessionID() string {
	return s.sessionID
}

// Answer never returns nil: failures and panics become an error answer
func (s *System) Answer(ctx context.Context, question string) (answer *model.Answer) {
	start := time.Now()
	logger := s.logger.With("question", question)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("analysis panicked", "panic", r)
			answer = model.ErrorAnswer(fmt.Errorf("%v", r))
		}
	}()

	answer, err := s.answer(ctx, question, logger)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		return model.ErrorAnswer(err)
	}

	logger.Info("analysis completed", "duration", time.Since(start).Round(time.Millisecond), "sources", len(answer.Sources))
	return answer
}

func (s *System) answer(ctx context.Context, question string, logger *slog.Logger) (*model.Answer, error) {
	// 1. Analyse the question
	q, err := s.model.AnalyzeQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("analyze query: %w", err)
	}
	if s.tickers != nil {
		q.Tickers = s.tickers.Normalize(q.Tickers)
	}
	logger.Info("query analysed",
		"query_type", q.QueryType,
		"tickers", q.Tickers,
		"time_periods", q.TimePeriods,
		"document_types", q.DocumentTypes,
		"complexity", q.ComplexityScore,
	)

	// 2. Retrieve evidence
	evidence := s.retriever.Retrieve(ctx, *q)
	logger.Info("evidence retrieved",
		"mode", s.retriever.Name(),
		"records", len(evidence.Records),
		"companies", evidence.Companies,
		"missing", evidence.Missing,
	)

	// 3. Synthesize against the allowed sources
	answer, err := s.model.Synthesize(ctx, llm.SynthesisRequest{
		Question:       question,
		AllowedSources: citation.AllowedSources(evidence.Records),
		Evidence:       evidence.Records,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	if len(evidence.Missing) > 0 {
		answer.Answer += fmt.Sprintf("\nNote: No filings found for: %s. "+
			"These companies were excluded due to missing or unavailable filings.", strings.Join(evidence.Missing, ", "))
	}

	// 4. Reconcile citations
	res := citation.Reconcile(answer.Answer, evidence.Records)
	answer.Answer = res.Text
	answer.Sources = orEmpty(res.Sources)
	answer.Citations = orEmpty(res.Citations)
	answer.UsedEvidenceIDs = orEmpty(res.UsedIDs)
	if len(res.Dangling) > 0 {
		logger.Warn("answer cited unknown sources", "tags", res.Dangling)
		answer.Limitations = append(answer.Limitations, danglingNote(res.Dangling))
	}
	if len(evidence.Records) == 0 {
		answer.Limitations = append(answer.Limitations, noEvidenceNote)
	}
	if evidence.Stage == retrieval.StageProbe {
		answer.Limitations = append(answer.Limitations, fallbackSampleNote)
	}

	// 5. Metadata
	answer.CompaniesAnalyzed = orEmpty(evidence.Companies)
	answer.FilingTypesUsed = filingTypes(q.DocumentTypes, evidence.Records)
	if answer.TimePeriodCovered == "" {
		answer.TimePeriodCovered = strings.Join(q.TimePeriods, ", ")
	}
	if answer.TimePeriodCovered == "" {
		answer.TimePeriodCovered = "Recent filings"
	}
	if answer.ToolUsed == "" {
		answer.ToolUsed = s.retriever.Name()
	}
	return answer, nil
}

func danglingNote(tags []string) string {
	refs := make([]string, len(tags))
	for i, n := range tags {
		refs[i] = "[C" + n + "]"
	}
	return "Citations without a matching source were left unresolved: " + strings.Join(refs, ", ")
}

// filingTypes reports the requested forms, or the forms evidence actually
// came from when the question named none
func filingTypes(requested []string, records []model.EvidenceRecord) []string {
	if len(requested) > 0 {
		return append([]string(nil), requested...)
	}

	out := []string{}
	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.DocumentType] {
			seen[r.DocumentType] = true
			out = append(out, r.DocumentType)
		}
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

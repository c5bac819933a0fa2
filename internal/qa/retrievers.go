package qa

import (
	"context"

	"github.com/ppiankov/filingqa/internal/company"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/retrieval"
	"github.com/ppiankov/filingqa/internal/strategy"
)

// Evidence is what one retrieval pass produced for a question
type Evidence struct {
	Records   []model.EvidenceRecord
	Companies []string // companies retrieval targeted, in order
	Missing   []string // companies that yielded nothing
	Stage     retrieval.Stage
}

// Retriever gathers evidence for an analysed question
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, q model.StructuredQuery) Evidence
}

// TargetedRetriever runs the strategy selector and fallback controller
type TargetedRetriever struct {
	Controller *retrieval.Controller
	Options    retrieval.Options
}

// Name returns the retrieval mode
func (r *TargetedRetriever) Name() string {
	return string(model.ModeTargeted)
}

// Retrieve executes the planned targets, probing when they come back empty
func (r *TargetedRetriever) Retrieve(ctx context.Context, q model.StructuredQuery) Evidence {
	out := r.Controller.Retrieve(ctx, q, r.Options)

	var companies []string
	seen := make(map[string]bool)
	add := func(ticker string) {
		if ticker != "" && !seen[ticker] {
			seen[ticker] = true
			companies = append(companies, ticker)
		}
	}
	for _, t := range out.Plan.Targets {
		add(t.Ticker)
	}
	for _, rec := range out.Records {
		add(rec.Ticker)
	}

	return Evidence{Records: out.Records, Companies: companies, Missing: out.Missing, Stage: out.Stage}
}

// BroadRetriever sweeps several forms for the top companies of a question
type BroadRetriever struct {
	Collector *retrieval.Collector
	Resolver  *company.Resolver
	TopK      int
}

// Name returns the retrieval mode
func (r *BroadRetriever) Name() string {
	return string(model.ModeBroad)
}

// Retrieve collects filings for each company the question points at
func (r *BroadRetriever) Retrieve(ctx context.Context, q model.StructuredQuery) Evidence {
	companies := r.Resolver.DetermineCompanies(q, r.TopK)

	forms := q.DocumentTypes
	if len(forms) == 0 {
		forms = strategy.DefaultDocumentTypes(q)
	}

	records, missing := r.Collector.Collect(ctx, companies, forms, strategy.DateFloor(q.TimePeriods))
	return Evidence{Records: records, Companies: companies, Missing: missing}
}

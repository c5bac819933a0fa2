// Package strategy turns a structured query into an ordered retrieval plan.
//
// Selection is a first-match ladder of independent rules. It performs no I/O.
package strategy

import (
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

// Plan reasons
const (
	ReasonExplicit  = "explicit_form_or_keyword"
	ReasonQueryType = "query_type"
	ReasonDefault   = "default"
	ReasonNoMatch   = "no_match"
)

// maxCompanies bounds the companies a keyword- or form-driven rule fans out to
const maxCompanies = 2

// Plan is the selector's output: a described, ordered list of targets
type Plan struct {
	Description string                  `json:"description"`
	Reason      string                  `json:"reason"`
	Targets     []model.RetrievalTarget `json:"targets"`
}

// CompanyChooser supplies companies when the query names no tickers
type CompanyChooser func(q model.StructuredQuery) []string

// Selector picks retrieval targets for a query
type Selector struct {
	chooser CompanyChooser
}

// NewSelector creates a selector. A nil chooser falls back to KeywordCompanies.
func NewSelector(chooser CompanyChooser) *Selector {
	if chooser == nil {
		chooser = KeywordCompanies
	}
	return &Selector{chooser: chooser}
}

// Select returns the plan produced by the first matching rule
func (s *Selector) Select(q model.StructuredQuery, allowDefault bool) Plan {
	in := s.input(q, allowDefault)
	for _, r := range rules {
		if plan, ok := r(in); ok {
			return plan
		}
	}
	// unreachable: the default rule always matches
	return Plan{Description: "No matching rule", Reason: ReasonNoMatch}
}

// Companies returns the company list the selector would use for q,
// truncated to the per-rule cap
func (s *Selector) Companies(q model.StructuredQuery) []string {
	return capCompanies(s.allCompanies(q))
}

func (s *Selector) allCompanies(q model.StructuredQuery) []string {
	if len(q.Tickers) > 0 {
		return q.Tickers
	}
	return s.chooser(q)
}

// ruleInput is the normalized view every rule evaluates
type ruleInput struct {
	query        model.StructuredQuery
	keywords     string          // lower-cased, space-joined keywords
	docs         map[string]bool // upper-cased requested forms
	companies    []string        // capped to maxCompanies
	allCompanies []string        // uncapped
	allowDefault bool
}

func (s *Selector) input(q model.StructuredQuery, allowDefault bool) ruleInput {
	docs := make(map[string]bool, len(q.DocumentTypes))
	for _, d := range q.DocumentTypes {
		docs[strings.ToUpper(strings.TrimSpace(d))] = true
	}
	all := s.allCompanies(q)
	return ruleInput{
		query:        q,
		keywords:     strings.ToLower(strings.Join(q.Keywords, " ")),
		docs:         docs,
		companies:    capCompanies(all),
		allCompanies: all,
		allowDefault: allowDefault,
	}
}

func (in ruleInput) mentions(terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(in.keywords, t) {
			return true
		}
	}
	return false
}

func capCompanies(companies []string) []string {
	if len(companies) > maxCompanies {
		return companies[:maxCompanies]
	}
	return companies
}

package model

// EvidenceRecord is one normalized, citable unit of retrieved filing text
type EvidenceRecord struct {
	ID           string  `json:"id"`                // Unique within a retrieval session (e.g., "AAPL_10-K_1A_targeted")
	Content      string  `json:"content"`           // Non-empty, at most MaxContentLength characters
	Ticker       string  `json:"ticker"`            // Company ticker (e.g., "AAPL")
	DocumentType string  `json:"document_type"`     // SEC form type (e.g., "10-K", "4")
	FilingDate   string  `json:"filing_date"`       // YYYY-MM-DD
	Section      string  `json:"section,omitempty"` // Item code or section label
	SourceURL    string  `json:"source_url"`        // Link to the SEC-hosted filing
	Confidence   float64 `json:"confidence"`        // 0.0-1.0
}

// MaxContentLength bounds EvidenceRecord.Content before it is handed downstream
const MaxContentLength = 1500

// SectionOrSummary returns the record's section, or "Summary" when it has none
func (r EvidenceRecord) SectionOrSummary() string {
	if r.Section == "" {
		return "Summary"
	}
	return r.Section
}

// Source is one resolved citation in a final answer
type Source struct {
	Ticker       string `json:"ticker"`
	DocumentType string `json:"document_type"`
	FilingDate   string `json:"filing_date"`
	Section      string `json:"section,omitempty"`
	URL          string `json:"url,omitempty"`
	EvidenceID   string `json:"evidence_id,omitempty"`
	Note         string `json:"note,omitempty"` // Extra context (e.g., insider name)
}

// Tier is the priority class of a retrieval target
type Tier string

const (
	TierExplicit         Tier = "explicit"           // Requested form or matching keywords
	TierQueryTypeDerived Tier = "query_type_derived" // Derived from the query-type label
	TierDefault          Tier = "default"            // Single default probe target
)

// RetrievalTarget is a planned (company, form, section) fetch intent
type RetrievalTarget struct {
	Ticker       string   `json:"ticker"`
	DocumentType string   `json:"document_type"`
	Sections     []string `json:"sections,omitempty"`
	Tier         Tier     `json:"tier"`
}

// FirstSection returns the only section carried into execution, or ""
func (t RetrievalTarget) FirstSection() string {
	if len(t.Sections) == 0 {
		return ""
	}
	return t.Sections[0]
}

// Known SEC form types
const (
	Form10K    = "10-K"
	Form10Q    = "10-Q"
	Form8K     = "8-K"
	FormDEF14A = "DEF 14A"
	Form3      = "3"
	Form4      = "4"
	Form5      = "5"
)

// KnownForms is the closed set of document types a target may carry
var KnownForms = []string{Form10K, Form10Q, Form8K, FormDEF14A, Form3, Form4, Form5}

// IsKnownForm reports whether form is one of KnownForms
func IsKnownForm(form string) bool {
	for _, f := range KnownForms {
		if f == form {
			return true
		}
	}
	return false
}

// FormClass groups forms by how they are fetched
type FormClass int

const (
	ClassGeneral    FormClass = iota // 8-K, DEF 14A and anything else: metadata summary
	ClassInsider                     // 3, 4, 5: insider transaction search
	ClassStructured                  // 10-K, 10-Q: section extraction
)

func (c FormClass) String() string {
	switch c {
	case ClassInsider:
		return "insider"
	case ClassStructured:
		return "structured"
	default:
		return "general"
	}
}

// ClassOf returns the fetch class for a form type
func ClassOf(form string) FormClass {
	switch form {
	case Form3, Form4, Form5:
		return ClassInsider
	case Form10K, Form10Q:
		return ClassStructured
	default:
		return ClassGeneral
	}
}

package strategy

import (
	"strings"
	"time"

	"github.com/ppiankov/filingqa/internal/model"
)

// KeywordCompanies picks a representative company from the query's theme
func KeywordCompanies(q model.StructuredQuery) []string {
	kw := strings.ToLower(strings.Join(q.Keywords, " "))
	switch {
	case strings.Contains(kw, "financial"):
		return []string{"JPM"}
	case strings.Contains(kw, "healthcare"):
		return []string{"JNJ"}
	default:
		return []string{"AAPL"}
	}
}

// FallbackPool is the last-resort company list for broad retrieval
var FallbackPool = []string{"AAPL", "MSFT", "JPM", "GOOGL", "AMZN", "META", "NVDA"}

// DefaultDocumentTypes infers form types from keywords when none were requested
func DefaultDocumentTypes(q model.StructuredQuery) []string {
	kw := strings.ToLower(strings.Join(q.Keywords, " "))
	has := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(kw, t) {
				return true
			}
		}
		return false
	}

	switch {
	case has("insider", "trading", "purchase", "sale"):
		return []string{model.Form4, model.Form3, model.Form5}
	case has("compensation", "executive", "salary", "pay"):
		return []string{model.FormDEF14A}
	case has("acquisition", "merger", "material", "event"):
		return []string{model.Form8K}
	case has("risk", "factor", "business"):
		return []string{model.Form10K}
	case has("quarterly", "q1", "q2", "q3", "q4"):
		return []string{model.Form10Q}
	default:
		return []string{model.Form10K, model.Form10Q}
	}
}

// DateFloor returns "YYYY-01-01" for the first four-digit year among the
// periods, or "" when the query only asks for recent filings
func DateFloor(periods []string) string {
	for _, p := range periods {
		p = strings.TrimSpace(p)
		if len(p) == 4 && isDigits(p) {
			return p + "-01-01"
		}
	}
	return ""
}

// RollingFloor returns the date floor for a window of days ending at now
func RollingFloor(now time.Time, days int) string {
	return now.UTC().AddDate(0, 0, -days).Format("2006-01-02")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

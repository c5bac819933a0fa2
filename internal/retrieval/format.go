package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/secapi"
)

const (
	insiderContentLimit = 1200
	minExtractLength    = 200
	minSummaryLength    = 50
	descriptionLimit    = 180
	ellipsis            = "..."
)

var printer = message.NewPrinter(language.English)

// sectionNames labels general-class filings
var sectionNames = map[string]string{
	model.Form8K:     "Material Event",
	model.FormDEF14A: "Proxy Statement",
	model.Form3:      "Initial Statement of Ownership",
	model.Form4:      "Statement of Changes in Ownership",
	model.Form5:      "Annual Statement of Ownership",
}

// SectionName returns the human label used for a general filing
func SectionName(form string) string {
	if name, ok := sectionNames[form]; ok {
		return name
	}
	return form + " Filing"
}

// action maps the acquired/disposed code; other codes are passed through
func action(code string) string {
	switch code {
	case "A":
		return "Acquired"
	case "D":
		return "Disposed"
	case "":
		return "Unknown"
	default:
		return code
	}
}

func shares(v float64) string  { return printer.Sprintf("%.0f", v) }
func dollars(v float64) string { return printer.Sprintf("$%.0f", v) }
func price(v float64) string   { return fmt.Sprintf("$%.2f", v) }

// insiderSummary renders the compact targeted record for the newest filing
func insiderSummary(ticker string, filing secapi.InsiderFiling) string {
	lines := []string{
		"Recent Insider Trading - " + ticker,
		"Person: " + filing.OwnerName(),
		"Filed: " + filing.FiledDate(),
		"",
	}

	var total float64
	nd := filing.NonDerivative()
	if len(nd) > 2 {
		nd = nd[:2]
	}
	for _, t := range nd {
		amt := t.Amounts
		if amt.Shares.Invalid || amt.PricePerShare.Invalid {
			continue
		}
		value := amt.Shares.Value * amt.PricePerShare.Value
		total += value
		lines = append(lines, fmt.Sprintf("- %s %s @ %s (%s)",
			action(amt.AcquiredDisposedCode), shares(amt.Shares.Value), price(amt.PricePerShare.Value), dollars(value)))
	}
	if total > 0 {
		lines = append(lines, "", "Total Value: "+dollars(total))
	}

	return clip(strings.Join(lines, "\n"), insiderContentLimit, "")
}

// insiderReport renders the long per-filing report used by broad retrieval
func insiderReport(ticker string, filing secapi.InsiderFiling) string {
	docType := orDefault(filing.DocumentType, "Unknown")
	period := orDefault(filing.PeriodOfReport, "Unknown")
	if len(period) > 10 {
		period = period[:10]
	}

	lines := []string{
		fmt.Sprintf("SEC Form %s - Insider Trading Report", docType),
		"Company: " + ticker,
		"Reporting Person: " + filing.OwnerName(),
		"Filing Date: " + orDefault(filing.FiledDate(), "Unknown"),
		"Period of Report: " + period,
		"",
	}

	if nd := filing.NonDerivative(); len(nd) > 0 {
		lines = append(lines, "Non-Derivative Securities Transactions:")
		var total float64
		var count int
		for _, t := range nd {
			amt := t.Amounts
			if amt.Shares.Invalid || amt.PricePerShare.Invalid {
				lines = append(lines, "  - Transaction skipped: unparsable amounts")
				continue
			}
			value := amt.Shares.Value * amt.PricePerShare.Value
			total += value
			count++

			date := t.TransactionDate
			if len(date) > 10 {
				date = date[:10]
			}
			lines = append(lines, fmt.Sprintf("  - %s: %s %s %s @ %s (Code: %s)",
				date, action(amt.AcquiredDisposedCode), shares(amt.Shares.Value),
				orDefault(t.SecurityTitle, "Common Stock"), price(amt.PricePerShare.Value),
				orDefault(t.Coding.Code, "Unknown")))
			if value > 0 {
				lines = append(lines, "    Transaction Value: "+dollars(value))
			}
		}
		if count > 0 {
			lines = append(lines,
				"",
				"Transaction Summary:",
				fmt.Sprintf("  - Number of Transactions: %d", count),
				"  - Total Transaction Value: "+dollars(total),
				"",
			)
		}
	}

	if filing.HasDerivative() {
		lines = append(lines, "Note: This filing also includes derivative securities transactions.")
	}
	return strings.Join(lines, "\n")
}

// generalSummary renders the short metadata summary for a targeted general fetch
func generalSummary(form string, filing secapi.Filing) string {
	desc := orDefault(filing.Description, form+" filing")
	return fmt.Sprintf("%s Filing - %s\nDate: %s\nSummary: %s...\n\nThis filing contains material information relevant to the query.",
		form, orDefault(filing.CompanyName, "Unknown Company"), filing.FiledDate(), clip(desc, descriptionLimit, ""))
}

// filingSummary renders the long metadata summary used by broad retrieval
func filingSummary(form string, filing secapi.Filing) string {
	desc := orDefault(filing.Description, form+" filing")
	lines := []string{
		form + " Filing Summary",
		"Company: " + orDefault(filing.CompanyName, "Unknown Company"),
		"Filing Date: " + orDefault(filing.FiledDate(), "Unknown"),
		"Description: " + desc,
		"",
	}

	switch model.ClassOf(form) {
	case model.ClassInsider:
		lines = append(lines,
			fmt.Sprintf("This is a Form %s insider trading report.", form),
			"Contains information about securities transactions by company insiders.")
	default:
		switch form {
		case model.Form8K:
			lines = append(lines, "This is a Current Report (8-K) that discloses material corporate events.")
			if strings.Contains(desc, "Item") {
				lines = append(lines, "Items reported are indicated in the description above.")
			}
		case model.FormDEF14A:
			lines = append(lines,
				"This is a Definitive Proxy Statement, typically containing:",
				"- Executive compensation information",
				"- Board of directors information",
				"- Shareholder voting matters")
		}
	}

	if filing.CIK != "" {
		lines = append(lines, "Company CIK: "+string(filing.CIK))
	}
	if filing.LinkToFilingDetails != "" {
		lines = append(lines, "Filing URL: "+filing.LinkToFilingDetails)
	}
	return strings.Join(lines, "\n")
}

// clip cuts s to at most limit runes, reserving room for suffix when cut
func clip(s string, limit int, suffix string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + suffix
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

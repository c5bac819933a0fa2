// Package citation builds the allowed-sources preamble for synthesis and
// reconciles the [C#] tags the model writes back against it.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

var tagPattern = regexp.MustCompile(`\[C(\d+)\]`)

const summaryNote = "Filing summary only; no section text was extracted"

// Result is the outcome of reconciling one answer
type Result struct {
	Body      string         // answer text with tags renumbered
	Text      string         // Body followed by the citations block, when any tag resolved
	Sources   []model.Source // one per resolved tag, in renumbered order
	Citations []string       // "C1", "C2", ...
	UsedIDs   []string       // evidence ids in renumbered order
	Mapping   map[int]int    // original tag number -> new tag number
	Dangling  []string       // digits of tags that resolved to no source, left verbatim
}

// Reconcile renumbers in-range tags by first occurrence and resolves each
// against allowed (1-based). Out-of-range tags are left untouched.
func Reconcile(text string, allowed []model.EvidenceRecord) Result {
	res := Result{Mapping: make(map[int]int)}

	var order []int
	seenDangling := make(map[string]bool)
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(allowed) {
			if !seenDangling[m[1]] {
				seenDangling[m[1]] = true
				res.Dangling = append(res.Dangling, m[1])
			}
			continue
		}
		if _, ok := res.Mapping[n]; ok {
			continue
		}
		order = append(order, n)
		res.Mapping[n] = len(order)
	}

	res.Body = tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		n, err := strconv.Atoi(tag[2 : len(tag)-1])
		if err != nil {
			return tag
		}
		if renumbered, ok := res.Mapping[n]; ok {
			return fmt.Sprintf("[C%d]", renumbered)
		}
		return tag
	})

	for i, n := range order {
		rec := allowed[n-1]
		res.Sources = append(res.Sources, model.Source{
			Ticker:       rec.Ticker,
			DocumentType: rec.DocumentType,
			FilingDate:   rec.FilingDate,
			Section:      rec.SectionOrSummary(),
			URL:          rec.SourceURL,
			EvidenceID:   rec.ID,
			Note:         note(rec),
		})
		res.Citations = append(res.Citations, fmt.Sprintf("C%d", i+1))
		res.UsedIDs = append(res.UsedIDs, rec.ID)
	}

	res.Text = res.Body
	if len(res.Sources) > 0 {
		res.Text = res.Body + "\n\n" + Block(res.Sources)
	}
	return res
}

// Block renders the citations block for sources numbered from 1
func Block(sources []model.Source) string {
	var b strings.Builder
	b.WriteString("**Citations**")
	for i, s := range sources {
		fmt.Fprintf(&b, "\n[C%d] %s", i+1, reference(s.Ticker, s.DocumentType, s.FilingDate, s.Section, s.URL))
	}
	return b.String()
}

// AllowedSources renders the preamble enumerating records as [C1]..[Cn]
func AllowedSources(records []model.EvidenceRecord) string {
	var b strings.Builder
	b.WriteString("ALLOWED SOURCES (use only these, cite inline as [C#]):")
	for i, r := range records {
		fmt.Fprintf(&b, "\n- [C%d] %s", i+1, reference(r.Ticker, r.DocumentType, r.FilingDate, r.SectionOrSummary(), r.SourceURL))
	}
	b.WriteString("\n\nCITATION RULES:")
	b.WriteString("\n- Cite every factual claim with one of the tags above, e.g. [C1].")
	b.WriteString("\n- Never invent tags or cite sources that are not listed.")
	b.WriteString("\n- If the sources do not answer the question, say so plainly.")
	return b.String()
}

// note flags sources that carry a filing summary rather than extracted text
func note(rec model.EvidenceRecord) string {
	if rec.Confidence < 1 {
		return summaryNote
	}
	return ""
}

func reference(ticker, form, date, section, url string) string {
	if section == "" {
		section = "Summary"
	}
	return fmt.Sprintf("%s %s %s, %s — %s", ticker, form, date, section, url)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

// answerReport is the JSON document written for one question
type answerReport struct {
	Question string        `json:"question"`
	Answer   *model.Answer `json:"result"`
}

func writeJSON(path, question string, a *model.Answer) error {
	data, err := json.MarshalIndent(answerReport{Question: question, Answer: a}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeMarkdown(path, question string, a *model.Answer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := renderMarkdown(f, question, a); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renderMarkdown writes the answer followed by its metadata
func renderMarkdown(w io.Writer, question string, a *model.Answer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", question)
	b.WriteString(a.Answer)
	b.WriteString("\n\n---\n\n")

	fmt.Fprintf(&b, "- **Confidence:** %.2f\n", a.ConfidenceScore)
	fmt.Fprintf(&b, "- **Companies analyzed:** %s\n", joinOr(a.CompaniesAnalyzed, "None"))
	fmt.Fprintf(&b, "- **Filing types:** %s\n", joinOr(a.FilingTypesUsed, "None"))
	fmt.Fprintf(&b, "- **Time period:** %s\n", orText(a.TimePeriodCovered, "Not specified"))
	if a.ToolUsed != "" {
		fmt.Fprintf(&b, "- **Retrieval:** %s\n", a.ToolUsed)
	}

	if a.Methodology != "" {
		fmt.Fprintf(&b, "\n## Methodology\n\n%s\n", a.Methodology)
	}

	if len(a.KeyMetrics) > 0 {
		b.WriteString("\n## Key Metrics\n\n")
		names := make([]string, 0, len(a.KeyMetrics))
		for name := range a.KeyMetrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, a.KeyMetrics[name])
		}
	}

	writeList(&b, "Limitations", a.Limitations)
	writeList(&b, "Recommendations", a.Recommendations)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func orText(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// sanitizeFilename turns a question into a short file-safe slug
func sanitizeFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.TrimSuffix(slug[:60], "-")
	}
	if slug == "" {
		slug = "question"
	}
	return slug
}

func outputPaths(dir string, index int, question string) (string, string) {
	base := filepath.Join(dir, fmt.Sprintf("%03d-%s", index, sanitizeFilename(question)))
	return base + ".json", base + ".md"
}

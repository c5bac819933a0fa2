package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/strategy"
)

var (
	planTickers   []string
	planForms     []string
	planKeywords  []string
	planPeriods   []string
	planQueryType string
	planNoDefault bool
)

// planCmd shows the retrieval plan for a hand-built query
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the retrieval targets chosen for a query",
	Long: `Plan runs the retrieval strategy selector on a query given as flags
and prints the targets it would fetch. No network calls are made.

Example:
  filingqa plan --ticker AAPL --form 10-K --keyword risk
  filingqa plan --ticker MSFT --ticker GOOGL --type multi_ticker_comparison
  filingqa plan --keyword insider --period 2024`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := model.StructuredQuery{
			Tickers:       upperAll(planTickers),
			DocumentTypes: upperAll(planForms),
			Keywords:      planKeywords,
			TimePeriods:   planPeriods,
			QueryType:     model.QueryType(planQueryType),
		}
		if q.QueryType != "" && !q.QueryType.Valid() {
			return fmt.Errorf("unknown query type %q", planQueryType)
		}

		plan := strategy.NewSelector(nil).Select(q, !planNoDefault)
		return renderPlan(cmd.OutOrStdout(), plan, strategy.DateFloor(q.TimePeriods))
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringSliceVar(&planTickers, "ticker", nil, "ticker symbol (repeatable)")
	planCmd.Flags().StringSliceVar(&planForms, "form", nil, "requested form type, e.g. 10-K, \"DEF 14A\", 4 (repeatable)")
	planCmd.Flags().StringSliceVar(&planKeywords, "keyword", nil, "query keyword (repeatable)")
	planCmd.Flags().StringSliceVar(&planPeriods, "period", nil, "time period, e.g. 2023 (repeatable)")
	planCmd.Flags().StringVar(&planQueryType, "type", "", "query type, e.g. multi_ticker_comparison")
	planCmd.Flags().BoolVar(&planNoDefault, "no-default", false, "disable the default target when no rule matches")
}

func renderPlan(w io.Writer, plan strategy.Plan, floor string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan:       %s\n", plan.Description)
	fmt.Fprintf(&b, "Reason:     %s\n", plan.Reason)
	fmt.Fprintf(&b, "Date floor: %s\n", orText(floor, "recent"))
	fmt.Fprintf(&b, "Targets:    %d\n", len(plan.Targets))
	for i, t := range plan.Targets {
		fmt.Fprintf(&b, "  %d. %-6s %-8s sections=%s tier=%s\n",
			i+1, t.Ticker, t.DocumentType, joinOr(t.Sections, "-"), t.Tier)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

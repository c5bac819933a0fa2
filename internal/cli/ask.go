package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/qa"
)

var (
	outJSON    string
	outMD      string
	askTimeout time.Duration
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single research question",
	Long: `Ask analyzes one question, retrieves the matching filings and prints
an answer with inline [C#] citations and a citations block.

Example:
  filingqa ask "What are Apple's main supply chain risk factors?"
  filingqa ask "Compare MSFT and GOOGL cloud risks" --mode broad --json answer.json
  filingqa ask "Any insider selling at NVDA in 2024?" --provider anthropic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	askCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 3*time.Minute, "overall timeout for the question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	system, err := qa.Build(cfg, cache.NewEvidenceCache(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Question: %s\n", question)
		fmt.Fprintf(os.Stderr, "Mode: %s, LLM: %s/%s\n", cfg.Retrieval.Mode, cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Session: %s\n\n", system.SessionID())
	}

	answer := system.Answer(ctx, question)

	if err := renderMarkdown(cmd.OutOrStdout(), question, answer); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if outJSON != "" {
		if err := writeJSON(outJSON, question, answer); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ JSON written to %s\n", outJSON)
	}
	if outMD != "" {
		if err := writeMarkdown(outMD, question, answer); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown written to %s\n", outMD)
	}
	return nil
}

// setup resolves configuration and builds the logger shared by commands
// that talk to the filing API
func setup() (*model.Config, *slog.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	if cfg.SECAPI.APIKey == "" {
		return nil, nil, fmt.Errorf("SEC API key not set (export SEC_API_KEY=... or set sec_api.api_key)")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

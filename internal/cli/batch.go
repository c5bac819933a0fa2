package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/qa"
	"github.com/ppiankov/filingqa/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Answer questions from a file in parallel",
	Long: `Batch answers many questions concurrently:
- Read questions from the input file (one per line, # for comments)
- Answer them with a configurable worker count
- Share one evidence cache so repeated filings are fetched once
- Write a JSON and a Markdown answer per question

Example:
  filingqa batch questions.txt
  filingqa batch questions.txt --concurrency 4 --output-dir ./answers
  filingqa batch questions.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default from concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./filingqa-answers", "output directory for answers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 20*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	workers := cfg.Concurrency.Workers
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  filingqa Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", cfg.Retrieval.Mode)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	evidence := cache.NewEvidenceCache()
	system, err := qa.Build(cfg, evidence, logger)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(system, workers)

	fmt.Fprintf(os.Stderr, "⚙️  Answering questions with %d workers...\n\n", workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount, failureCount := writeBatchResults(results)

	stats := evidence.Stats()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:        %d questions\n", len(results))
	fmt.Fprintf(os.Stderr, "  Answered:     %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:     %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Cache:        %d hits, %d misses\n", stats.Hits, stats.Misses)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func writeBatchResults(results []*worker.QuestionResult) (success, failure int) {
	for i, result := range results {
		if result.Error != nil {
			failure++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Question, result.Error)
			continue
		}

		jsonPath, mdPath := outputPaths(outputDir, i+1, result.Question)
		if err := writeJSON(jsonPath, result.Question, result.Answer); err != nil {
			failure++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Question, err)
			continue
		}
		if err := writeMarkdown(mdPath, result.Question, result.Answer); err != nil {
			failure++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Question, err)
			continue
		}

		success++
		fmt.Fprintf(os.Stderr, "✓ %s (sources: %d, confidence: %.2f)\n",
			result.Question, len(result.Answer.Sources), result.Answer.ConfidenceScore)
	}
	return success, failure
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiago/land-scout/internal/config"
	"github.com/tiago/land-scout/internal/enrich"
	"github.com/tiago/land-scout/internal/eval"
	"github.com/tiago/land-scout/internal/logging"
)

var evalCommand = &cobra.Command{
	Use:   "eval",
	Short: "Score the enrichment prompt against a hand-labeled golden set",
	Long: `Runs the review-tagging prompt over a golden set of labeled reviews and
reports micro-averaged precision, recall and F1 for the pros/cons tags.`,
	RunE: runEvalCmd,
}

var (
	evalGoldenPath string
	evalLimit      int
	evalBatchSize  int
	evalVerbose    bool
)

func init() {
	evalCommand.Flags().StringVar(&evalGoldenPath, "golden", "golden_set.json", "Path to the labeled golden set")
	evalCommand.Flags().IntVar(&evalLimit, "limit", 0, "Evaluate at most this many items (0 = all)")
	evalCommand.Flags().IntVar(&evalBatchSize, "batch", 10, "Reviews per model call")
	evalCommand.Flags().BoolVarP(&evalVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(evalCommand)
}

func runEvalCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()
	logger := logging.New(evalVerbose)

	if cfg.APIKey == "" {
		return fmt.Errorf("evaluation requires a Gemini API key (GEMINI_API_KEY)")
	}

	gold, err := eval.LoadGoldenSet(evalGoldenPath, evalLimit)
	if err != nil {
		return fmt.Errorf("load golden set: %w", err)
	}
	if len(gold) == 0 {
		return fmt.Errorf("golden set %s contains no items", evalGoldenPath)
	}
	logger.Info("[eval] Loaded %d labeled reviews from %s", len(gold), evalGoldenPath)

	tax := loadTaxonomy(cfg, logger)
	gen, err := enrich.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, eval.SystemInstruction(tax))
	if err != nil {
		return fmt.Errorf("create Gemini client: %w", err)
	}
	defer gen.Close()

	runner := eval.NewRunner(gen, evalBatchSize, logger)
	metrics, err := runner.Evaluate(ctx, gold)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Prompt evaluation")
	fmt.Println("-----------------")
	fmt.Printf("Samples:   %d\n", metrics.Samples)
	fmt.Printf("Precision: %.3f\n", metrics.Precision())
	fmt.Printf("Recall:    %.3f\n", metrics.Recall())
	fmt.Printf("F1:        %.3f\n", metrics.F1())
	return nil
}

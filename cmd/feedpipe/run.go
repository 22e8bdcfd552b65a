package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: dedup, enrich, embed, score",
	Long: `Run every pass in dependency order. Each pass is idempotent and only
touches rows still missing the field it produces, so interrupting and
re-running is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

		fmt.Printf("%s\n", cyan("=== Deduplication ==="))
		dedupResult, err := orch.RunDedupPass(ctx)
		if err != nil {
			return fmt.Errorf("dedup pass failed: %w", err)
		}
		printDedupResult(dedupResult)

		fmt.Printf("\n%s\n", cyan("=== Tags & Summaries ==="))
		if _, err := orch.RunTagSummaryPass(ctx); err != nil {
			return fmt.Errorf("tag/summary pass failed: %w", err)
		}

		fmt.Printf("\n%s\n", cyan("=== Embeddings ==="))
		if _, err := orch.RunEmbeddingPass(ctx); err != nil {
			return fmt.Errorf("embedding pass failed: %w", err)
		}

		fmt.Printf("\n%s\n", cyan("=== Scoring ==="))
		if _, err := orch.RunScoringPass(ctx); err != nil {
			return fmt.Errorf("scoring pass failed: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

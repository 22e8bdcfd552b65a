package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/pipeline"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Generate tags and summaries for unenriched events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSinglePass(func(ctx context.Context, orch *pipeline.Orchestrator) (*pipeline.PassStats, error) {
			return orch.RunTagSummaryPass(ctx)
		})
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embeddings for enriched events without one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSinglePass(func(ctx context.Context, orch *pipeline.Orchestrator) (*pipeline.PassStats, error) {
			return orch.RunEmbeddingPass(ctx)
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score embedded events that have no score yet",
	Long: `Score events on rarity, uniqueness, and magnitude. Recurring events
(detected by matching occurrences inside a sliding window) skip the model
call and receive a fixed floor score.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSinglePass(func(ctx context.Context, orch *pipeline.Orchestrator) (*pipeline.PassStats, error) {
			return orch.RunScoringPass(ctx)
		})
	},
}

func runSinglePass(pass func(context.Context, *pipeline.Orchestrator) (*pipeline.PassStats, error)) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}
	stats, err := pass(context.Background(), orch)
	if err != nil {
		return err
	}
	printPassStats(stats)
	return nil
}

func printPassStats(stats *pipeline.PassStats) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("  Processed: %d  Succeeded: %s  Failed: %s  Fallback: %s  Skipped: %d\n",
		stats.Processed,
		green(fmt.Sprintf("%d", stats.Succeeded)),
		red(fmt.Sprintf("%d", stats.Failed)),
		yellow(fmt.Sprintf("%d", stats.Fallback)),
		stats.Skipped)
	if stats.Truncated {
		fmt.Printf("  %s pass stopped on wall-clock budget; remaining rows stay queued\n", yellow("⚠"))
	}
	for _, e := range stats.Errors {
		fmt.Printf("    %s\n", gray(e))
	}
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(scoreCmd)
}

package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/dedup"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate events",
	Long: `Run both deduplication tiers: the exact fingerprint tier (normalized
title, organizer, rounded start time, price class) and the per-day
semantic tier, which asks the model to spot the same real-world event
listed differently across sources.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings.Dedup.DryRun = dedupDryRun
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}
		result, err := orch.RunDedupPass(context.Background())
		if err != nil {
			return fmt.Errorf("dedup pass failed: %w", err)
		}
		if dedupDryRun {
			fmt.Println("(dry run: nothing was deleted)")
		}
		printDedupResult(result)
		return nil
	},
}

var dedupDryRun bool

func printDedupResult(result *dedup.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("  Fingerprint groups: %d (%s removed)\n",
		result.FingerprintGroups, green(fmt.Sprintf("%d", result.FingerprintRemoved)))
	fmt.Printf("  Semantic: %s removed across %d days, %d tokens\n",
		green(fmt.Sprintf("%d", result.SemanticRemoved)), result.DaysProcessed, result.TokensUsed)
	if result.DaysFailed > 0 {
		fmt.Printf("  %s %d days failed:\n", red("✗"), result.DaysFailed)
		for _, e := range result.Errors {
			fmt.Printf("    %s\n", gray(e))
		}
	}
}

func init() {
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "report what would be removed without deleting")
	rootCmd.AddCommand(dedupCmd)
}

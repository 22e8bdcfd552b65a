package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline backlog and event counts",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Feed Pipeline Status ==="))

		total, err := store.CountEvents(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to count events: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %d total events\n\n", green("●"), total)

		fmt.Printf("%s\n", yellow("Backlog:"))
		for _, stage := range []struct {
			name   string
			filter types.EventFilter
		}{
			{"awaiting tags/summary", types.EventFilter{MissingSummary: true}},
			{"awaiting embedding", types.EventFilter{MissingEmbedding: true, HasSummary: true}},
			{"awaiting score", types.EventFilter{MissingScore: true, HasEmbedding: true}},
		} {
			events, err := store.ListEvents(ctx, stage.filter)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to list events: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("  %-24s %d\n", stage.name, len(events))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

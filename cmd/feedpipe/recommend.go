package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/taste"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

var (
	recommendUser  string
	recommendLimit int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank upcoming events against a user's taste centroids",
	Long: `Score every upcoming embedded event against the user's positive and
negative taste centroids. Only "great" and "good" tier matches are shown;
each comes with the liked event it most resembles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		engine := taste.NewEngine(store, settings.Taste)

		now := time.Now()
		events, err := store.ListEvents(ctx, types.EventFilter{
			HasEmbedding:     true,
			StartAfter:       &now,
			OrderByStartTime: true,
		})
		if err != nil {
			return fmt.Errorf("failed to list upcoming events: %w", err)
		}

		type ranked struct {
			event *types.Event
			score float64
			tier  types.Tier
		}
		var matches []ranked
		for _, event := range events {
			score, tier, err := engine.ScoreEventForUser(ctx, recommendUser, event)
			if err != nil {
				return err
			}
			if tier == types.TierNone {
				continue
			}
			matches = append(matches, ranked{event, score, tier})
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
		if len(matches) > recommendLimit {
			matches = matches[:recommendLimit]
		}

		green := color.New(color.FgGreen, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(matches) == 0 {
			fmt.Printf("%s\n", gray("No personalized matches. The user may need more signals."))
			return nil
		}

		for _, m := range matches {
			tierLabel := yellow(string(m.tier))
			if m.tier == types.TierGreat {
				tierLabel = green(string(m.tier))
			}
			fmt.Printf("%s [%.3f] %s\n", tierLabel, m.score, m.event.Title)
			fmt.Printf("  %s %s\n", m.event.StartTime.Format("Mon Jan 2 15:04"), gray(m.event.Location))

			liked, sim, err := engine.FindNearestLikedEvent(ctx, recommendUser, m.event)
			if err != nil {
				return err
			}
			if liked != nil {
				fmt.Printf("  %s\n", gray(fmt.Sprintf("because you liked %q (%.2f)", liked.Title, sim)))
			}
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendUser, "user", "", "user ID to recommend for (required)")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 10, "maximum recommendations to show")
	_ = recommendCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(recommendCmd)
}

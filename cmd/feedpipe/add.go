package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

var (
	addTitle     string
	addDesc      string
	addLocation  string
	addOrganizer string
	addPrice     string
	addStart     string
	addSourceURL string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Ingest a single scraped event",
	Long: `Insert one event as a scraper would. The row starts with all derived
fields null; the pipeline passes fill them in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := time.Parse(time.RFC3339, addStart)
		if err != nil {
			return fmt.Errorf("invalid --start (want RFC3339, e.g. 2026-09-04T19:00:00-04:00): %w", err)
		}

		event := &types.Event{
			ID:          uuid.New().String(),
			Title:       addTitle,
			Description: addDesc,
			Location:    addLocation,
			Organizer:   addOrganizer,
			Price:       addPrice,
			StartTime:   start,
			SourceURL:   addSourceURL,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := event.Validate(); err != nil {
			return err
		}
		if err := store.CreateEvent(context.Background(), event); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		fmt.Printf("Created event %s\n", event.ID)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "event title (required)")
	addCmd.Flags().StringVar(&addDesc, "description", "", "event description")
	addCmd.Flags().StringVar(&addLocation, "location", "", "venue or address")
	addCmd.Flags().StringVar(&addOrganizer, "organizer", "", "organizer name")
	addCmd.Flags().StringVar(&addPrice, "price", "", "price text as scraped")
	addCmd.Flags().StringVar(&addStart, "start", "", "start time, RFC3339 (required)")
	addCmd.Flags().StringVar(&addSourceURL, "source-url", "", "original listing URL")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(addCmd)
}

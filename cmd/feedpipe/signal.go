package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/taste"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

var (
	signalUser  string
	signalEvent string
	signalType  string
	signalID    string
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Record or remove user interaction signals",
}

var signalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an interaction signal",
	Long: `Record a typed interaction (favorite, calendar_add, share, view_source,
or hide). Hides suppress similar events; everything else boosts them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := taste.NewEngine(store, settings.Taste)
		signal := &types.Signal{
			ID:        uuid.New().String(),
			UserID:    signalUser,
			EventID:   signalEvent,
			Type:      types.SignalType(signalType),
			Active:    true,
			CreatedAt: time.Now(),
		}
		if err := signal.Validate(); err != nil {
			return err
		}
		if err := engine.RecordSignal(context.Background(), signal); err != nil {
			return fmt.Errorf("failed to record signal: %w", err)
		}
		fmt.Printf("Recorded %s signal %s\n", signal.Type, signal.ID)
		return nil
	},
}

var signalRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Deactivate a signal (e.g. un-favorite)",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := taste.NewEngine(store, settings.Taste)
		if err := engine.DeactivateSignal(context.Background(), signalUser, signalID); err != nil {
			return fmt.Errorf("failed to deactivate signal: %w", err)
		}
		fmt.Printf("Deactivated signal %s\n", signalID)
		return nil
	},
}

func init() {
	signalAddCmd.Flags().StringVar(&signalUser, "user", "", "user ID (required)")
	signalAddCmd.Flags().StringVar(&signalEvent, "event", "", "event ID (required)")
	signalAddCmd.Flags().StringVar(&signalType, "type", "favorite", "signal type")
	_ = signalAddCmd.MarkFlagRequired("user")
	_ = signalAddCmd.MarkFlagRequired("event")

	signalRemoveCmd.Flags().StringVar(&signalUser, "user", "", "user ID (required)")
	signalRemoveCmd.Flags().StringVar(&signalID, "id", "", "signal ID (required)")
	_ = signalRemoveCmd.MarkFlagRequired("user")
	_ = signalRemoveCmd.MarkFlagRequired("id")

	signalCmd.AddCommand(signalAddCmd)
	signalCmd.AddCommand(signalRemoveCmd)
	rootCmd.AddCommand(signalCmd)
}

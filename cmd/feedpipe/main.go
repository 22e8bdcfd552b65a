// feedpipe drives the event feed decision pipeline: deduplication,
// tag/summary enrichment, embedding, quality scoring, and per-user
// personalization, each as an idempotent pass over the event table.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MattB543/asheville-event-feed-sub002/internal/config"
	"github.com/MattB543/asheville-event-feed-sub002/internal/dedup"
	"github.com/MattB543/asheville-event-feed-sub002/internal/embedding"
	"github.com/MattB543/asheville-event-feed-sub002/internal/llm"
	"github.com/MattB543/asheville-event-feed-sub002/internal/pipeline"
	"github.com/MattB543/asheville-event-feed-sub002/internal/recurrence"
	"github.com/MattB543/asheville-event-feed-sub002/internal/scoring"
	"github.com/MattB543/asheville-event-feed-sub002/internal/similarity"
	"github.com/MattB543/asheville-event-feed-sub002/internal/storage"
)

var (
	dbPath     string
	configPath string
	store      storage.Storage
	settings   config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "feedpipe",
	Short: "Event feed decision pipeline",
	Long: `feedpipe ingests scraped events and decides which are duplicates, what
they are about, how good they are, and which ones matter to a user.

Passes are idempotent and run in dependency order:
  dedup -> enrich -> embed -> score

Each pass only touches rows still missing the field it produces, so
re-running a pass is always safe.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(configPath)
		if err != nil {
			return err
		}
		store, err = storage.NewStorage(context.Background(), &storage.Config{Path: dbPath})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", storage.DefaultConfig().Path, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file with tuning overrides")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newOrchestrator wires the full pipeline. Provider clients are constructed
// once here and passed explicitly into each component.
func newOrchestrator() (*pipeline.Orchestrator, error) {
	modelClient, err := llm.NewClient(nil)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewService(nil)
	if err != nil {
		return nil, err
	}

	dedupEngine := dedup.NewEngine(store, modelClient, settings.Dedup)
	enricher := scoring.NewEnricher(modelClient, scoring.DefaultEnricherConfig())
	scorer := scoring.NewScorer(modelClient, scoring.DefaultConfig())
	detector := recurrence.NewDetector(store, recurrence.DefaultConfig())
	index := similarity.NewIndex(store)

	return pipeline.New(store, dedupEngine, enricher, embedder, scorer, detector,
		index, pipeline.DefaultIsPermanent, settings.Pipeline), nil
}

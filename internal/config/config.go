// Package config loads operator overrides for pipeline tuning knobs from a
// YAML file. Every field is optional; absent fields keep their defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MattB543/asheville-event-feed-sub002/internal/dedup"
	"github.com/MattB543/asheville-event-feed-sub002/internal/pipeline"
	"github.com/MattB543/asheville-event-feed-sub002/internal/taste"
)

// File is the on-disk shape. Zero values mean "not set".
type File struct {
	Pipeline struct {
		PageSize             int           `yaml:"page_size"`
		ChunkSize            int           `yaml:"chunk_size"`
		ChunkDelay           time.Duration `yaml:"chunk_delay"`
		PassBudget           time.Duration `yaml:"pass_budget"`
		MaxPages             int           `yaml:"max_pages"`
		SimilarLimit         int           `yaml:"similar_limit"`
		SimilarMinSimilarity float64       `yaml:"similar_min_similarity"`
		SimilarWindowDays    int           `yaml:"similar_window_days"`
	} `yaml:"pipeline"`

	Dedup struct {
		SemanticWindowDays int `yaml:"semantic_window_days"`
		MaxEventsPerDay    int `yaml:"max_events_per_day"`
	} `yaml:"dedup"`

	Taste struct {
		CentroidTTL    time.Duration `yaml:"centroid_ttl"`
		GreatThreshold float64       `yaml:"great_threshold"`
		GoodThreshold  float64       `yaml:"good_threshold"`
	} `yaml:"taste"`
}

// Settings is the resolved configuration: defaults overlaid with whatever
// the file set.
type Settings struct {
	Pipeline pipeline.Config
	Dedup    dedup.Config
	Taste    taste.Config
}

// Defaults returns settings with every component at its default.
func Defaults() Settings {
	return Settings{
		Pipeline: pipeline.DefaultConfig(),
		Dedup:    dedup.DefaultConfig(),
		Taste:    taste.DefaultConfig(),
	}
}

// Load reads a YAML config file and overlays it onto the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Settings, error) {
	settings := Defaults()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return settings, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	f.apply(&settings)
	return settings, nil
}

func (f *File) apply(s *Settings) {
	p := f.Pipeline
	if p.PageSize > 0 {
		s.Pipeline.PageSize = p.PageSize
	}
	if p.ChunkSize > 0 {
		s.Pipeline.ChunkSize = p.ChunkSize
	}
	if p.ChunkDelay > 0 {
		s.Pipeline.ChunkDelay = p.ChunkDelay
	}
	if p.PassBudget > 0 {
		s.Pipeline.PassBudget = p.PassBudget
	}
	if p.MaxPages > 0 {
		s.Pipeline.MaxPages = p.MaxPages
	}
	if p.SimilarLimit > 0 {
		s.Pipeline.SimilarLimit = p.SimilarLimit
	}
	if p.SimilarMinSimilarity > 0 {
		s.Pipeline.SimilarMinSimilarity = p.SimilarMinSimilarity
	}
	if p.SimilarWindowDays > 0 {
		s.Pipeline.SimilarWindowDays = p.SimilarWindowDays
	}

	if f.Dedup.SemanticWindowDays > 0 {
		s.Dedup.SemanticWindowDays = f.Dedup.SemanticWindowDays
	}
	if f.Dedup.MaxEventsPerDay > 0 {
		s.Dedup.MaxEventsPerDay = f.Dedup.MaxEventsPerDay
	}

	if f.Taste.CentroidTTL > 0 {
		s.Taste.CentroidTTL = f.Taste.CentroidTTL
	}
	if f.Taste.GreatThreshold > 0 {
		s.Taste.GreatThreshold = f.Taste.GreatThreshold
	}
	if f.Taste.GoodThreshold > 0 {
		s.Taste.GoodThreshold = f.Taste.GoodThreshold
	}
}

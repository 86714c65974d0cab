// Package dupdetect implements the duplicate-report detection and
// priority-escalation engine. All functions here are pure: they operate on
// records handed in by the caller, perform no I/O, and return decisions for
// the caller to persist.
package dupdetect

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the tunable policy parameters of the duplicate engine.
// These are policy choices, not derived constants; the defaults follow the
// thresholds the platform has been operating with.
type Config struct {
	// MaxDistanceMeters is the proximity radius: reports farther apart than
	// this are never considered the same issue. Default: 100 m.
	MaxDistanceMeters float64

	// MinTextSimilarity is the general matching threshold on the Jaccard
	// description similarity. A candidate at or above it qualifies at any
	// distance inside the radius. Default: 0.4.
	MinTextSimilarity float64

	// MinCompositeScore is the qualification floor on the combined
	// proximity+similarity score for candidates below MinTextSimilarity.
	// Two reports of the same issue often share no vocabulary ("garbage
	// pile" vs "trash smell"), so closeness alone can carry a match: with
	// the default 0.4 a zero-similarity candidate still qualifies within
	// a fifth of the radius. Default: 0.4.
	MinCompositeScore float64

	// ReopenSimilarity is the stricter re-identification threshold applied
	// when deciding to reopen a recently resolved report. Reopening is a
	// stronger claim than merging, so this must be >= MinTextSimilarity.
	// Default: 0.5.
	ReopenSimilarity float64

	// ReopenWindow is how long after resolution a highly similar re-report
	// can reopen the resolved issue. Default: 7 days.
	ReopenWindow time.Duration

	// Tier boundaries on a canonical report's duplicate count.
	// count < TierMedium -> low, < TierHigh -> medium, < TierUrgent -> high,
	// else urgent. Defaults: 2, 5, 8 (so 0-1 low, 2-4 medium, 5-7 high,
	// 8+ urgent).
	TierMedium int
	TierHigh   int
	TierUrgent int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxDistanceMeters: 100,
		MinTextSimilarity: 0.4,
		MinCompositeScore: 0.4,
		ReopenSimilarity:  0.5,
		ReopenWindow:      7 * 24 * time.Hour,
		TierMedium:        2,
		TierHigh:          5,
		TierUrgent:        8,
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.MaxDistanceMeters <= 0 {
		return fmt.Errorf("max_distance_meters must be positive (got %v)", c.MaxDistanceMeters)
	}
	if c.MinTextSimilarity < 0 || c.MinTextSimilarity > 1 {
		return fmt.Errorf("min_text_similarity must be in [0,1] (got %v)", c.MinTextSimilarity)
	}
	if c.MinCompositeScore <= 0 || c.MinCompositeScore > 1 {
		return fmt.Errorf("min_composite_score must be in (0,1] (got %v)", c.MinCompositeScore)
	}
	if c.ReopenSimilarity < 0 || c.ReopenSimilarity > 1 {
		return fmt.Errorf("reopen_similarity must be in [0,1] (got %v)", c.ReopenSimilarity)
	}
	if c.ReopenSimilarity < c.MinTextSimilarity {
		return fmt.Errorf("reopen_similarity (%v) must not be below min_text_similarity (%v)",
			c.ReopenSimilarity, c.MinTextSimilarity)
	}
	if c.ReopenWindow <= 0 {
		return fmt.Errorf("reopen_window must be positive (got %v)", c.ReopenWindow)
	}
	if c.TierMedium < 1 {
		return fmt.Errorf("tier_medium must be at least 1 (got %d)", c.TierMedium)
	}
	if c.TierHigh <= c.TierMedium || c.TierUrgent <= c.TierHigh {
		return fmt.Errorf("tier boundaries must be strictly increasing (got %d, %d, %d)",
			c.TierMedium, c.TierHigh, c.TierUrgent)
	}
	return nil
}

// ConfigFromEnv builds a Config from DUP_* environment variables, starting
// from the defaults. Unset variables keep their default; malformed or
// out-of-range values are an error.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("DUP_MAX_DISTANCE_METERS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("DUP_MAX_DISTANCE_METERS: %w", err)
		}
		cfg.MaxDistanceMeters = f
	}
	if v := os.Getenv("DUP_MIN_TEXT_SIMILARITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("DUP_MIN_TEXT_SIMILARITY: %w", err)
		}
		cfg.MinTextSimilarity = f
	}
	if v := os.Getenv("DUP_MIN_COMPOSITE_SCORE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("DUP_MIN_COMPOSITE_SCORE: %w", err)
		}
		cfg.MinCompositeScore = f
	}
	if v := os.Getenv("DUP_REOPEN_SIMILARITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("DUP_REOPEN_SIMILARITY: %w", err)
		}
		cfg.ReopenSimilarity = f
	}
	if v := os.Getenv("DUP_REOPEN_WINDOW_DAYS"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("DUP_REOPEN_WINDOW_DAYS: %w", err)
		}
		cfg.ReopenWindow = time.Duration(d) * 24 * time.Hour
	}
	if v := os.Getenv("DUP_TIER_MEDIUM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("DUP_TIER_MEDIUM: %w", err)
		}
		cfg.TierMedium = n
	}
	if v := os.Getenv("DUP_TIER_HIGH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("DUP_TIER_HIGH: %w", err)
		}
		cfg.TierHigh = n
	}
	if v := os.Getenv("DUP_TIER_URGENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("DUP_TIER_URGENT: %w", err)
		}
		cfg.TierUrgent = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

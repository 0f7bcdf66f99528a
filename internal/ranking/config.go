package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Weights holds the weights of the four ranking components.
type Weights struct {
	AvgRating      float64 `json:"avg_rating"`      // default 0.5
	ReviewCount    float64 `json:"review_count"`    // default 0.3
	Recency        float64 `json:"recency"`         // default 0.1
	UserPreference float64 `json:"user_preference"` // default 0.1
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// DefaultWeights returns the default ranking weights. They sum to 1.0, which
// keeps every score in [0, 1].
func DefaultWeights() *Weights {
	return &Weights{
		AvgRating:      0.5,
		ReviewCount:    0.3,
		Recency:        0.1,
		UserPreference: 0.1,
	}
}

// Sum returns the total of all weights.
func (w *Weights) Sum() float64 {
	return w.AvgRating + w.ReviewCount + w.Recency + w.UserPreference
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// An empty path returns the defaults. On a read or parse failure the defaults
// are returned together with the error so callers can keep serving.
// Partial configurations are merged onto the defaults.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(config.Version, defaults, merged)

	return merged, nil
}

// MergeCalibration returns a copy of base with every non-zero weight of
// override applied.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	if override.AvgRating != 0 {
		result.AvgRating = override.AvgRating
	}
	if override.ReviewCount != 0 {
		result.ReviewCount = override.ReviewCount
	}
	if override.Recency != 0 {
		result.Recency = override.Recency
	}
	if override.UserPreference != 0 {
		result.UserPreference = override.UserPreference
	}

	return &result
}

func logCalibrationOverrides(version string, defaults *Weights, loaded *Weights) {
	var overrides []string

	check := func(name string, def, got float64) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}
	check("avg_rating", defaults.AvgRating, loaded.AvgRating)
	check("review_count", defaults.ReviewCount, loaded.ReviewCount)
	check("recency", defaults.Recency, loaded.Recency)
	check("user_preference", defaults.UserPreference, loaded.UserPreference)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"version", version,
			"overrides", overrides,
			"weight_sum", loaded.Sum())
	} else {
		slog.Info("loaded ranking calibration (using all defaults)", "version", version)
	}
}

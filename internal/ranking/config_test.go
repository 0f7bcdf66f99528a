package ranking

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCalibration(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write calibration file: %v", err)
	}
	return path
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w.AvgRating != 0.5 || w.ReviewCount != 0.3 || w.Recency != 0.1 || w.UserPreference != 0.1 {
		t.Errorf("unexpected defaults %+v", w)
	}
	if !approxEqual(w.Sum(), 1.0) {
		t.Errorf("expected default weights to sum to 1, got %v", w.Sum())
	}
}

func TestLoadCalibration_DefaultFile(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "ranking.calibration.json")
	weights, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("expected no error loading default calibration file, got: %v", err)
	}
	if *weights != *DefaultWeights() {
		t.Errorf("loaded weights don't match defaults: %+v", weights)
	}
}

func TestLoadCalibration_EmptyPath(t *testing.T) {
	weights, err := LoadCalibration("")
	if err != nil {
		t.Errorf("expected no error with empty path, got: %v", err)
	}
	if *weights != *DefaultWeights() {
		t.Error("expected defaults for empty path")
	}
}

func TestLoadCalibration_MissingFile(t *testing.T) {
	weights, err := LoadCalibration(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if *weights != *DefaultWeights() {
		t.Error("expected defaults for missing file")
	}
}

func TestLoadCalibration_InvalidJSON(t *testing.T) {
	weights, err := LoadCalibration(writeCalibration(t, "{not json"))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
	if *weights != *DefaultWeights() {
		t.Error("expected defaults for invalid JSON")
	}
}

func TestLoadCalibration_PartialOverride(t *testing.T) {
	weights, err := LoadCalibration(writeCalibration(t, `{"version":"2","weights":{"recency":0.25}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Weights{AvgRating: 0.5, ReviewCount: 0.3, Recency: 0.25, UserPreference: 0.1}
	if *weights != want {
		t.Errorf("expected %+v, got %+v", want, *weights)
	}
}

func TestMergeCalibration(t *testing.T) {
	base := DefaultWeights()

	if got := MergeCalibration(nil, &Weights{AvgRating: 1}); *got != *DefaultWeights() {
		t.Errorf("nil base should yield defaults, got %+v", got)
	}

	got := MergeCalibration(base, nil)
	if *got != *base || got == base {
		t.Error("nil override should yield a copy of base")
	}

	got = MergeCalibration(base, &Weights{AvgRating: 0.7, UserPreference: 0.2})
	want := Weights{AvgRating: 0.7, ReviewCount: 0.3, Recency: 0.1, UserPreference: 0.2}
	if *got != want {
		t.Errorf("expected %+v, got %+v", want, *got)
	}
	if base.AvgRating != 0.5 {
		t.Error("merge must not mutate base")
	}
}

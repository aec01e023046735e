package scoring

import (
	"math"
	"testing"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreEmptyResponse(t *testing.T) {
	s := Score("llava", map[string]any{})
	if s.Completeness != 0 || s.Confidence != 0 || s.Score != 0 {
		t.Fatalf("expected all-zero score for empty response, got %+v", s)
	}
}

func TestScoreFullyPopulatedNoHedging(t *testing.T) {
	s := Score("llava", map[string]any{
		"vendor":         "Acme Corp",
		"invoice_number": "INV-1042",
		"total":          "99.00",
	})
	if !almostEqual(s.Completeness, 1.0) {
		t.Fatalf("expected completeness 1.0, got %v", s.Completeness)
	}
	if !almostEqual(s.Confidence, 0.5) {
		t.Fatalf("expected confidence 0.5, got %v", s.Confidence)
	}
	if !almostEqual(s.Score, 0.8) {
		t.Fatalf("expected combined score 0.8, got %v", s.Score)
	}
}

func TestCompletenessCountsEmptyValues(t *testing.T) {
	got := Completeness(map[string]any{
		"vendor": "Acme",
		"date":   "",
		"total":  nil,
		"items":  []any{},
	})
	if !almostEqual(got, 0.25) {
		t.Fatalf("expected completeness 0.25, got %v", got)
	}
}

func TestConfidencePenalizesDistinctPhrasesOnce(t *testing.T) {
	got := Confidence(map[string]any{
		"vendor": "unknown",
		"date":   "unknown",
		"total":  "not found",
	})
	// Two distinct phrases: 0.5 - 0.1 - 0.1.
	if !almostEqual(got, 0.3) {
		t.Fatalf("expected confidence 0.3, got %v", got)
	}
}

func TestConfidenceFloorsAtZero(t *testing.T) {
	got := Confidence(map[string]any{
		"a": "unknown", "b": "n/a", "c": "not found", "d": "not specified",
		"e": "not available", "f": "missing", "g": "not detected",
	})
	if got != 0 {
		t.Fatalf("expected confidence clamped to 0, got %v", got)
	}
}

func TestSelectBestEmptyInput(t *testing.T) {
	if _, ok := SelectBest(nil, 0.5); ok {
		t.Fatalf("expected absent result for empty input")
	}
}

func TestSelectBestPicksHighestScoreAboveFloor(t *testing.T) {
	scores := []domain.ModelScore{
		{ModelName: "llava", Confidence: 0.5, Score: 0.7},
		{ModelName: "bakllava", Confidence: 0.5, Score: 0.9},
		{ModelName: "internvl", Confidence: 0.2, Score: 0.95},
	}
	best, ok := SelectBest(scores, 0.4)
	if !ok {
		t.Fatalf("expected a selection")
	}
	if best.ModelName != "bakllava" {
		t.Fatalf("expected bakllava, got %s", best.ModelName)
	}
}

func TestSelectBestFallsBackToBestOfTheBad(t *testing.T) {
	scores := []domain.ModelScore{
		{ModelName: "llava", Confidence: 0.3, Score: 0.4},
	}
	best, ok := SelectBest(scores, 0.9)
	if !ok {
		t.Fatalf("expected fallback selection, got absent")
	}
	if best.ModelName != "llava" {
		t.Fatalf("expected llava, got %s", best.ModelName)
	}
}

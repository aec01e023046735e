package scoring

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

const (
	completenessWeight = 0.6
	confidenceWeight   = 0.4
	baseConfidence     = 0.5
	uncertaintyPenalty = 0.1
)

// uncertaintyPhrases are hedging markers; each distinct phrase present in the
// serialized response subtracts one penalty, regardless of occurrence count.
var uncertaintyPhrases = []string{
	"unknown",
	"n/a",
	"not found",
	"not specified",
	"not available",
	"missing",
	"not detected",
}

// Completeness is the fraction of fields carrying a populated value.
func Completeness(fields map[string]any) float64 {
	if len(fields) == 0 {
		return 0.0
	}
	populated := 0
	for _, v := range fields {
		if !isEmptyValue(v) {
			populated++
		}
	}
	return float64(populated) / float64(len(fields))
}

// Confidence starts at 0.5 and drops for each distinct uncertainty phrase
// found anywhere in the serialized response, clamped to [0,1].
func Confidence(fields map[string]any) float64 {
	if len(fields) == 0 {
		return 0.0
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return 0.0
	}
	text := strings.ToLower(string(raw))

	confidence := baseConfidence
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(text, phrase) {
			confidence -= uncertaintyPenalty
		}
	}
	return clamp01(confidence)
}

// Score evaluates one model response. An empty response scores zero across
// the board.
func Score(modelName string, fields map[string]any) domain.ModelScore {
	response := domain.ModelResponse{
		ModelName: modelName,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}

	completeness := Completeness(fields)
	confidence := Confidence(fields)
	combined := completenessWeight*completeness + confidenceWeight*confidence

	return domain.ModelScore{
		ModelName:    modelName,
		Completeness: completeness,
		Confidence:   confidence,
		Score:        combined,
		Response:     response,
		Metrics: map[string]float64{
			"completeness": completeness,
			"confidence":   confidence,
		},
	}
}

// SelectBest filters to scores meeting the confidence floor and returns the
// highest combined score among them. When nothing survives the filter it
// degrades gracefully and returns the best of the unfiltered set, so callers
// always get an answer when one exists; the second return value is false only
// for an empty input.
func SelectBest(scores []domain.ModelScore, minConfidence float64) (domain.ModelScore, bool) {
	if len(scores) == 0 {
		return domain.ModelScore{}, false
	}

	var survivors []domain.ModelScore
	for _, s := range scores {
		if s.Confidence >= minConfidence {
			survivors = append(survivors, s)
		}
	}
	if len(survivors) == 0 {
		survivors = scores
	}

	best := survivors[0]
	for _, s := range survivors[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

// isEmptyValue mirrors the scoring rules for "populated": nil, empty strings,
// empty containers, false and numeric zero all count as unpopulated.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case json.Number:
		return t.String() == "0"
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

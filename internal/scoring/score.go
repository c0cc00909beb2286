package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Matching categories produced by the scoring service.
const (
	CategoryGender              = "gender"
	CategoryAcademia            = "academia"
	CategoryLanguages           = "languages"
	CategoryAgeDifference       = "age_difference"
	CategoryGeographicProximity = "geographic_proximity"
)

// Categories lists all category names in their canonical order.
func Categories() []string {
	return []string{
		CategoryGender,
		CategoryAcademia,
		CategoryLanguages,
		CategoryAgeDifference,
		CategoryGeographicProximity,
	}
}

// scoreFields are the per-category detail keys a score object may use instead
// of a bare number.
var scoreFields = []string{
	"score",
	"gender_score",
	"academic_score",
	"birthday_score",
	"language_score",
	"distance_score",
	"total_score",
}

// ParseScore normalizes the scoring service's score encodings into a float64.
// JSON cannot carry IEEE infinities, so the service emits the literal strings
// "Infinity"/"inf" and "-Infinity"/"-inf"; those map onto the two canonical
// sentinels. Returns false when the value is not a usable number.
func ParseScore(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) {
			return 0, false
		}
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return ParseScore(val.String())
		}
		return f, true
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "infinity", "inf", "+infinity", "+inf":
			return math.Inf(1), true
		case "-infinity", "-inf":
			return math.Inf(-1), true
		case "":
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CategoryValue extracts the numeric score from a category entry, which is
// either a bare number or a detail object carrying one of the known score
// fields. Absent or unusable values score 0.
func CategoryValue(v any) float64 {
	if detail, ok := v.(map[string]any); ok {
		for _, field := range scoreFields {
			if raw, ok := detail[field]; ok {
				if score, usable := ParseScore(raw); usable {
					return score
				}
			}
		}
		return 0
	}

	if score, ok := ParseScore(v); ok {
		return score
	}
	return 0
}

// Round2 rounds a finite score to 2 decimal places. Sentinel infinities pass
// through unrounded.
func Round2(f float64) float64 {
	if math.IsInf(f, 0) {
		return f
	}
	return math.Round(f*100) / 100
}

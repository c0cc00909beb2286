package scoring

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"go.uber.org/zap"
)

// Request is the body of the POST /matching call. Manual overrides are
// forwarded so the service can bake them into its final matches; pair keys
// use the "mentorId-menteeId" order.
type Request struct {
	ImportanceModifiers   map[string]float64 `json:"importance_modifiers,omitempty"`
	AgeMaxDifference      int                `json:"age_max_difference,omitempty"`
	GeographicMaxDistance int                `json:"geographic_max_distance,omitempty"`
	ManualMatches         []string           `json:"manual_matches,omitempty"`
	ManualNonMatches      []string           `json:"manual_non_matches,omitempty"`
}

// FinalMatch is one authoritative pair from the scoring service. TotalScore
// is finite or one of the two infinity sentinels after normalization.
type FinalMatch struct {
	MentorID   string  `mapstructure:"mentor_id"`
	MenteeID   string  `mapstructure:"mentee_id"`
	TotalScore float64 `mapstructure:"-"`
	IsMatched  bool    `mapstructure:"is_matched"`
}

// Results holds the decoded scoring response. Category maps are keyed
// "menteeId-mentorId" — the service's own key order, which differs from the
// "mentorId-menteeId" order used for overrides and assignments. The asymmetry
// is part of the wire contract and must not be normalized away.
type Results struct {
	Categories   map[string]map[string]float64
	FinalMatches []FinalMatch
}

// decodeResults converts the loosely-typed matching response into Results,
// normalizing every score sentinel on the way in.
func decodeResults(payload map[string]any, logger *zap.Logger) (*Results, error) {
	results := &Results{
		Categories: make(map[string]map[string]float64),
	}

	for _, category := range Categories() {
		raw, ok := payload[category]
		if !ok {
			logger.Warn("scoring response is missing a category", zap.String("category", category))
			continue
		}

		entries, ok := raw.(map[string]any)
		if !ok {
			logger.Warn("unexpected category payload shape, skipping",
				zap.String("category", category),
				zap.String("type", fmt.Sprintf("%T", raw)),
			)
			continue
		}

		scores := make(map[string]float64, len(entries))
		for pairKey, entry := range entries {
			scores[pairKey] = CategoryValue(entry)
		}
		results.Categories[category] = scores
	}

	rawMatches, ok := payload["final_matches"]
	if !ok {
		logger.Warn("scoring response has no final_matches, pool will be empty")
		return results, nil
	}

	items, ok := rawMatches.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected final_matches shape: %T", rawMatches)
	}

	for i, item := range items {
		match, err := decodeFinalMatch(item)
		if err != nil {
			logger.Warn("skipping undecodable final match",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		results.FinalMatches = append(results.FinalMatches, *match)
	}

	return results, nil
}

func decodeFinalMatch(item any) (*FinalMatch, error) {
	entry, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("final match entry is %T, not an object", item)
	}

	var match FinalMatch
	cfg := &mapstructure.DecoderConfig{
		Result:           &match,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(entry); err != nil {
		return nil, fmt.Errorf("decode final match: %w", err)
	}

	match.MentorID = strings.TrimSpace(match.MentorID)
	match.MenteeID = strings.TrimSpace(match.MenteeID)
	if match.MentorID == "" || match.MenteeID == "" {
		return nil, fmt.Errorf("final match is missing mentor_id or mentee_id")
	}

	score, usable := ParseScore(entry["total_score"])
	if !usable {
		return nil, fmt.Errorf("final match %s-%s has unusable total_score %v", match.MentorID, match.MenteeID, entry["total_score"])
	}
	match.TotalScore = score

	return &match, nil
}

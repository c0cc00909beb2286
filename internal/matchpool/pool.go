// Package matchpool combines the scoring service's per-pair category scores
// with the current override state into a uniform pair-score table.
package matchpool

import (
	"math"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/overrides"
	"github.com/mentorloop/mentormatch/internal/roster"
	"github.com/mentorloop/mentormatch/internal/scoring"
)

// PairScore is one scored mentor/mentee pair. Combined is a finite value in
// [0,1], or +Inf for a forced match, or -Inf for a forced/blocked non-match;
// exactly one of the three holds. ImmutableNonMatch marks pairs the scoring
// service itself blocked, which the override state machine refuses to toggle.
type PairScore struct {
	MentorID string
	MenteeID string

	Categories        map[string]float64
	Combined          float64
	ImmutableNonMatch bool
}

// Key returns the "mentorId-menteeId" pair key used for overrides and
// assignments.
func (p *PairScore) Key() string {
	return overrides.Key(p.MentorID, p.MenteeID)
}

// CategoryKey returns the "menteeId-mentorId" key the scoring service uses
// for category lookups. The reversed order is part of the wire contract.
func CategoryKey(menteeID, mentorID string) string {
	return menteeID + "-" + mentorID
}

// Build materializes the match pool from the service's authoritative final
// pairs. Only pairs the service returned exist in the pool; when it returns
// nothing the pool is empty. Manual overrides take precedence over anything
// the service said.
func Build(mentors []*roster.Mentor, mentees []*roster.Mentee, results *scoring.Results, state *overrides.State, logger *zap.Logger) []*PairScore {
	mentorIDs := make(map[string]struct{}, len(mentors))
	for _, mentor := range mentors {
		mentorIDs[mentor.ID] = struct{}{}
	}
	menteeIDs := make(map[string]struct{}, len(mentees))
	for _, mentee := range mentees {
		menteeIDs[mentee.ID] = struct{}{}
	}

	pool := make([]*PairScore, 0, len(results.FinalMatches))
	seen := make(map[string]struct{}, len(results.FinalMatches))

	for _, match := range results.FinalMatches {
		pair := &PairScore{
			MentorID: match.MentorID,
			MenteeID: match.MenteeID,
		}
		key := pair.Key()

		if _, ok := seen[key]; ok {
			logger.Warn("duplicate final match, first occurrence kept", zap.String("pair", key))
			continue
		}

		if _, ok := mentorIDs[match.MentorID]; !ok {
			logger.Warn("final match references unknown mentor, dropped",
				zap.String("pair", key),
				zap.String("mentor_id", match.MentorID),
			)
			continue
		}
		if _, ok := menteeIDs[match.MenteeID]; !ok {
			logger.Warn("final match references unknown mentee, dropped",
				zap.String("pair", key),
				zap.String("mentee_id", match.MenteeID),
			)
			continue
		}

		pair.Categories = categoryBreakdown(match.MenteeID, match.MentorID, results)
		pair.ImmutableNonMatch = blockedByService(pair.Categories)

		combined, usable := resolveCombined(key, match.TotalScore, state)
		if !usable {
			logger.Warn("pair has no usable combined score, dropped", zap.String("pair", key))
			continue
		}
		pair.Combined = combined

		seen[key] = struct{}{}
		pool = append(pool, pair)
	}

	return pool
}

// ImmutableKeys lists the pool's backend-blocked pair keys, for feeding the
// override state after each rebuild.
func ImmutableKeys(pool []*PairScore) []string {
	var keys []string
	for _, pair := range pool {
		if pair.ImmutableNonMatch {
			keys = append(keys, pair.Key())
		}
	}
	return keys
}

// Find returns the pool entry for a pair key, or nil.
func Find(pool []*PairScore, key string) *PairScore {
	for _, pair := range pool {
		if pair.Key() == key {
			return pair
		}
	}
	return nil
}

// resolveCombined applies the precedence order: manual match wins over
// manual non-match, which wins over the service's own total score.
func resolveCombined(key string, total float64, state *overrides.State) (float64, bool) {
	switch state.Status(key) {
	case overrides.StatusManualMatch:
		return math.Inf(1), true
	case overrides.StatusManualNonMatch:
		return math.Inf(-1), true
	}

	if math.IsNaN(total) {
		return 0, false
	}
	return scoring.Round2(total), true
}

func categoryBreakdown(menteeID, mentorID string, results *scoring.Results) map[string]float64 {
	key := CategoryKey(menteeID, mentorID)
	breakdown := make(map[string]float64, len(results.Categories))
	for category, scores := range results.Categories {
		score, ok := scores[key]
		if !ok {
			breakdown[category] = 0
			continue
		}
		breakdown[category] = scoring.Round2(score)
	}
	return breakdown
}

// blockedByService reports whether the service's own breakdown contains a
// negative-infinite category score; such pairs are incompatible regardless
// of user choice.
func blockedByService(categories map[string]float64) bool {
	for _, score := range categories {
		if math.IsInf(score, -1) {
			return true
		}
	}
	return false
}

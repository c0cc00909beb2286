// Package assignment turns a scored match pool into a recommended one-to-one
// pairing. The algorithm is greedy: it always takes the next-best available
// pair, which approximates — but does not guarantee — the maximum-weight
// matching. That trade-off is deliberate; the pool sizes here never justify
// a Hungarian-style solver.
package assignment

import (
	"hash/fnv"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/matchpool"
	"github.com/mentorloop/mentormatch/internal/overrides"
)

// Compute returns the recommended assignment as a sorted slice of pair keys.
// Manual matches are seeded unconditionally; manual non-matches and pairs
// with a -Inf combined score are never selected; each mentor and mentee
// appears in at most one pair. Pure and deterministic: the same pool and
// override state always produce the same result.
func Compute(pool []*matchpool.PairScore, state *overrides.State) []string {
	selected := make(map[string]struct{})
	consumedMentors := make(map[string]struct{})
	consumedMentees := make(map[string]struct{})

	// Seed: every manual match is part of the result, whatever its score.
	for _, key := range state.Matches() {
		mentorID, menteeID, err := overrides.SplitKey(key)
		if err != nil {
			continue
		}
		selected[key] = struct{}{}
		consumedMentors[mentorID] = struct{}{}
		consumedMentees[menteeID] = struct{}{}
	}

	candidates := make([]*matchpool.PairScore, 0, len(pool))
	for _, pair := range pool {
		key := pair.Key()
		if _, ok := selected[key]; ok {
			continue
		}
		if state.Status(key) == overrides.StatusManualNonMatch {
			continue
		}
		if math.IsInf(pair.Combined, -1) {
			continue
		}
		if _, ok := consumedMentors[pair.MentorID]; ok {
			continue
		}
		if _, ok := consumedMentees[pair.MenteeID]; ok {
			continue
		}
		candidates = append(candidates, pair)
	}

	// Stable sort keeps input order on ties, so the scan below is
	// deterministic even for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return rankValue(candidates[i].Combined) > rankValue(candidates[j].Combined)
	})

	for _, pair := range candidates {
		if _, ok := consumedMentors[pair.MentorID]; ok {
			continue
		}
		if _, ok := consumedMentees[pair.MenteeID]; ok {
			continue
		}
		selected[pair.Key()] = struct{}{}
		consumedMentors[pair.MentorID] = struct{}{}
		consumedMentees[pair.MenteeID] = struct{}{}
	}

	keys := make([]string, 0, len(selected))
	for key := range selected {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// rankValue maps combined scores onto finite comparison values: +Inf above
// every finite score, any other non-finite value below them.
func rankValue(combined float64) float64 {
	if math.IsInf(combined, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(combined, -1) || math.IsNaN(combined) {
		return -math.MaxFloat64
	}
	return combined
}

// Engine memoizes Compute on the pool contents and the override revision.
// Recomputation is cheap, but the prompt loop re-renders the assignment
// after every action and most actions change neither input.
type Engine struct {
	logger *zap.Logger

	lastPoolHash uint64
	lastRevision uint64
	lastResult   []string
	cached       bool
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Compute returns the recommended assignment, reusing the previous result
// when neither the pool nor the override state changed.
func (e *Engine) Compute(pool []*matchpool.PairScore, state *overrides.State) []string {
	poolHash := fingerprint(pool)
	revision := state.Revision()

	if e.cached && poolHash == e.lastPoolHash && revision == e.lastRevision {
		e.logger.Debug("assignment unchanged, using cached result",
			zap.Int("pairs", len(e.lastResult)),
		)
		return append([]string(nil), e.lastResult...)
	}

	result := Compute(pool, state)

	e.lastPoolHash = poolHash
	e.lastRevision = revision
	e.lastResult = result
	e.cached = true

	e.logger.Debug("assignment recomputed",
		zap.Int("pool_size", len(pool)),
		zap.Int("pairs", len(result)),
	)

	return append([]string(nil), result...)
}

func fingerprint(pool []*matchpool.PairScore) uint64 {
	h := fnv.New64a()
	for _, pair := range pool {
		h.Write([]byte(pair.Key()))
		var bits [8]byte
		score := math.Float64bits(pair.Combined)
		for i := 0; i < 8; i++ {
			bits[i] = byte(score >> (8 * i))
		}
		h.Write(bits[:])
	}
	return h.Sum64()
}

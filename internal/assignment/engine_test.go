package assignment

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/matchpool"
	"github.com/mentorloop/mentormatch/internal/overrides"
)

func pair(mentorID, menteeID string, combined float64) *matchpool.PairScore {
	return &matchpool.PairScore{MentorID: mentorID, MenteeID: menteeID, Combined: combined}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func TestComputeGreedyIsNotGloballyOptimal(t *testing.T) {
	// Greedy takes (m1,e2)=0.95 first, which forces (m2,e1)=0.5 for a total
	// of 1.45 — better here than the alternative, but the point is that the
	// scan never reconsiders: (m2,e2) is unreachable once e2 is consumed.
	pool := []*matchpool.PairScore{
		pair("m1", "e1", 0.9),
		pair("m1", "e2", 0.95),
		pair("m2", "e1", 0.5),
		pair("m2", "e2", 0.4),
	}

	result := Compute(pool, overrides.NewState())

	if len(result) != 2 {
		t.Fatalf("expected 2 pairs, got %v", result)
	}
	if !contains(result, "m1-e2") || !contains(result, "m2-e1") {
		t.Fatalf("expected {m1-e2, m2-e1}, got %v", result)
	}
}

func TestComputeAssignmentValidity(t *testing.T) {
	pool := []*matchpool.PairScore{
		pair("m1", "e1", 0.8),
		pair("m1", "e2", 0.7),
		pair("m2", "e1", 0.6),
		pair("m2", "e2", 0.5),
		pair("m3", "e3", math.Inf(-1)),
	}

	state := overrides.NewState()
	if _, err := state.ToggleNonMatch("m2-e2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := Compute(pool, state)

	mentors := make(map[string]bool)
	mentees := make(map[string]bool)
	for _, key := range result {
		mentorID, menteeID, err := overrides.SplitKey(key)
		if err != nil {
			t.Fatalf("malformed key in result: %q", key)
		}
		if mentors[mentorID] {
			t.Fatalf("mentor %s assigned twice: %v", mentorID, result)
		}
		if mentees[menteeID] {
			t.Fatalf("mentee %s assigned twice: %v", menteeID, result)
		}
		mentors[mentorID] = true
		mentees[menteeID] = true
	}

	if contains(result, "m2-e2") {
		t.Fatalf("manual non-match selected: %v", result)
	}
	if contains(result, "m3-e3") {
		t.Fatalf("-Inf pair selected: %v", result)
	}
}

func TestComputeSeedsManualMatches(t *testing.T) {
	pool := []*matchpool.PairScore{
		pair("m1", "e1", 0.99),
		pair("m1", "e2", math.Inf(1)), // forced via override below
		pair("m2", "e1", 0.2),
	}

	state := overrides.NewState()
	if _, err := state.ToggleMatch("m1-e2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := Compute(pool, state)

	if !contains(result, "m1-e2") {
		t.Fatalf("manual match missing from result: %v", result)
	}
	if contains(result, "m1-e1") {
		t.Fatalf("seeded mentor must not be reassigned: %v", result)
	}
	if !contains(result, "m2-e1") {
		t.Fatalf("remaining identities should still be paired: %v", result)
	}
}

func TestComputeNonMatchForcesAlternative(t *testing.T) {
	pool := []*matchpool.PairScore{
		pair("m1", "e2", 0.95),
		pair("m1", "e1", 0.9),
		pair("m2", "e2", 0.6),
	}

	state := overrides.NewState()
	if _, err := state.ToggleNonMatch("m1-e2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := Compute(pool, state)

	if contains(result, "m1-e2") {
		t.Fatalf("excluded pair selected: %v", result)
	}
	if !contains(result, "m1-e1") || !contains(result, "m2-e2") {
		t.Fatalf("expected next-best pairing for both halves, got %v", result)
	}
}

func TestComputeIdempotent(t *testing.T) {
	pool := []*matchpool.PairScore{
		pair("m1", "e1", 0.5),
		pair("m2", "e2", 0.5),
		pair("m1", "e2", 0.5),
	}
	state := overrides.NewState()

	first := Compute(pool, state)
	second := Compute(pool, state)

	if len(first) != len(second) {
		t.Fatalf("results differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("results differ: %v vs %v", first, second)
		}
	}
}

func TestComputeEmptyPool(t *testing.T) {
	result := Compute(nil, overrides.NewState())
	if len(result) != 0 {
		t.Fatalf("expected empty assignment, got %v", result)
	}
}

func TestEngineMemoization(t *testing.T) {
	pool := []*matchpool.PairScore{
		pair("m1", "e1", 0.9),
		pair("m2", "e2", 0.8),
	}
	state := overrides.NewState()
	engine := NewEngine(zap.NewNop())

	first := engine.Compute(pool, state)
	second := engine.Compute(pool, state)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("unexpected results: %v / %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached result differs: %v vs %v", first, second)
		}
	}

	// Mutating the cached copy must not poison the cache.
	second[0] = "tampered"
	third := engine.Compute(pool, state)
	if third[0] == "tampered" {
		t.Fatalf("engine returned a shared slice")
	}

	// A state change invalidates the cache.
	if _, err := state.ToggleNonMatch("m1-e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fourth := engine.Compute(pool, state)
	if contains(fourth, "m1-e1") {
		t.Fatalf("stale cache served after override change: %v", fourth)
	}

	// A pool change invalidates the cache too.
	pool[1].Combined = math.Inf(-1)
	fifth := engine.Compute(pool, state)
	if contains(fifth, "m2-e2") {
		t.Fatalf("stale cache served after pool change: %v", fifth)
	}
}

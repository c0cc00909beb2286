package overrides

import (
	"errors"
	"testing"
)

func TestToggleMatchAndBack(t *testing.T) {
	state := NewState()

	status, err := state.ToggleMatch("m1-e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusManualMatch {
		t.Fatalf("expected manual-match, got %s", status)
	}
	if state.Status("m1-e1") != StatusManualMatch {
		t.Fatalf("status not recorded")
	}

	// Toggling the same declared state again is a toggle-off, not a no-op.
	status, err = state.ToggleMatch("m1-e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusUnset {
		t.Fatalf("expected unset after toggle-off, got %s", status)
	}
}

func TestToggleMatchExclusivity(t *testing.T) {
	state := NewState()

	if _, err := state.ToggleMatch("m1-e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := state.ToggleMatch("m1-e2"); !errors.Is(err, ErrMentorTaken) {
		t.Fatalf("expected ErrMentorTaken, got %v", err)
	}
	if _, err := state.ToggleMatch("m2-e1"); !errors.Is(err, ErrMenteeTaken) {
		t.Fatalf("expected ErrMenteeTaken, got %v", err)
	}
	if state.Status("m1-e2") != StatusUnset || state.Status("m2-e1") != StatusUnset {
		t.Fatalf("rejected transitions must not change state")
	}

	// Unsetting the existing match frees both halves.
	if _, err := state.ToggleMatch("m1-e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := state.ToggleMatch("m1-e2"); err != nil {
		t.Fatalf("expected match to succeed after unset, got %v", err)
	}
}

func TestToggleNonMatchDisjointSets(t *testing.T) {
	state := NewState()

	if _, err := state.ToggleMatch("m1-e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := state.ToggleNonMatch("m1-e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusManualNonMatch {
		t.Fatalf("expected manual-non-match, got %s", status)
	}
	if len(state.Matches()) != 0 {
		t.Fatalf("key must leave manualMatches when declared a non-match")
	}

	status, err = state.ToggleNonMatch("m1-e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusUnset {
		t.Fatalf("expected unset after toggle-off, got %s", status)
	}
}

func TestImmutablePairsRejectTransitions(t *testing.T) {
	state := NewState()
	state.MarkImmutable([]string{"m1-e1"})

	if _, err := state.ToggleMatch("m1-e1"); !errors.Is(err, ErrImmutablePair) {
		t.Fatalf("expected ErrImmutablePair, got %v", err)
	}
	if _, err := state.ToggleNonMatch("m1-e1"); !errors.Is(err, ErrImmutablePair) {
		t.Fatalf("expected ErrImmutablePair, got %v", err)
	}
	if state.Status("m1-e1") != StatusUnset {
		t.Fatalf("immutable rejection must not mutate state")
	}
}

func TestNonMatchesCarryNoCardinalityConstraint(t *testing.T) {
	state := NewState()

	for _, key := range []string{"m1-e1", "m1-e2", "m2-e1"} {
		if _, err := state.ToggleNonMatch(key); err != nil {
			t.Fatalf("unexpected error for %s: %v", key, err)
		}
	}
	if len(state.NonMatches()) != 3 {
		t.Fatalf("expected 3 non-matches, got %d", len(state.NonMatches()))
	}
}

func TestBadKeysRejected(t *testing.T) {
	state := NewState()

	if _, err := state.ToggleMatch("nodash"); !errors.Is(err, ErrBadKey) {
		t.Fatalf("expected ErrBadKey, got %v", err)
	}
	if _, err := state.ToggleNonMatch(""); !errors.Is(err, ErrBadKey) {
		t.Fatalf("expected ErrBadKey, got %v", err)
	}
}

func TestRevisionAdvancesOnMutation(t *testing.T) {
	state := NewState()
	before := state.Revision()

	if _, err := state.ToggleMatch("m1-e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Revision() == before {
		t.Fatalf("revision should advance on mutation")
	}

	mid := state.Revision()
	if _, err := state.ToggleMatch("m1-e2"); err == nil {
		t.Fatalf("expected rejection")
	}
	if state.Revision() != mid {
		t.Fatalf("rejected transitions must not advance the revision")
	}
}

func TestSplitKey(t *testing.T) {
	mentor, mentee, err := SplitKey("12-34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mentor != "12" || mentee != "34" {
		t.Fatalf("unexpected split: %q / %q", mentor, mentee)
	}

	if Key("12", "34") != "12-34" {
		t.Fatalf("unexpected key: %q", Key("12", "34"))
	}
}

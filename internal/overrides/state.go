// Package overrides tracks user-declared forced matches and forced
// non-matches. The state is single-writer: callers must serialize mutations
// (trivially satisfied by the synchronous CLI loop; add external locking
// before sharing a State across goroutines).
package overrides

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status is the override state of one pair key.
type Status string

const (
	StatusUnset          Status = "unset"
	StatusManualMatch    Status = "manual-match"
	StatusManualNonMatch Status = "manual-non-match"
)

var (
	// ErrImmutablePair rejects transitions on pairs the scoring service
	// itself blocked; those cannot be toggled by the user.
	ErrImmutablePair = errors.New("pair is blocked by the scoring service and cannot be changed")
	// ErrMentorTaken rejects a second manual match for the same mentor.
	ErrMentorTaken = errors.New("mentor already has a manual match")
	// ErrMenteeTaken rejects a second manual match for the same mentee.
	ErrMenteeTaken = errors.New("mentee already has a manual match")
	// ErrBadKey marks a pair key that does not split into mentor and mentee.
	ErrBadKey = errors.New("malformed pair key")
)

// Key builds the canonical "mentorId-menteeId" pair key.
func Key(mentorID, menteeID string) string {
	return mentorID + "-" + menteeID
}

// SplitKey splits a pair key into mentor and mentee identities.
func SplitKey(key string) (mentorID, menteeID string, err error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return parts[0], parts[1], nil
}

// State holds the two disjoint override sets plus the immutable-non-match
// flags sourced from the score pool. A pair key is in exactly one of
// {unset, manual-match, manual-non-match} at any time.
type State struct {
	matches    map[string]struct{}
	nonMatches map[string]struct{}
	immutable  map[string]struct{}

	revision uint64
}

func NewState() *State {
	return &State{
		matches:    make(map[string]struct{}),
		nonMatches: make(map[string]struct{}),
		immutable:  make(map[string]struct{}),
	}
}

// Status returns the current override state of the pair key.
func (s *State) Status(key string) Status {
	if _, ok := s.matches[key]; ok {
		return StatusManualMatch
	}
	if _, ok := s.nonMatches[key]; ok {
		return StatusManualNonMatch
	}
	return StatusUnset
}

// IsImmutable reports whether the scoring service blocked this pair.
func (s *State) IsImmutable(key string) bool {
	_, ok := s.immutable[key]
	return ok
}

// MarkImmutable records backend-blocked pairs. Called after every pool
// rebuild; earlier flags are replaced, not accumulated.
func (s *State) MarkImmutable(keys []string) {
	s.immutable = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		s.immutable[key] = struct{}{}
	}
}

// ToggleMatch declares the pair a manual match, or reverts it to unset when
// it already is one. A manual match is rejected while the pair is immutable
// or while either half already has a different manual match. Rejected
// transitions leave the state untouched.
func (s *State) ToggleMatch(key string) (Status, error) {
	mentorID, menteeID, err := SplitKey(key)
	if err != nil {
		return s.Status(key), err
	}

	if _, ok := s.matches[key]; ok {
		delete(s.matches, key)
		s.revision++
		return StatusUnset, nil
	}

	if s.IsImmutable(key) {
		return s.Status(key), fmt.Errorf("%s: %w", key, ErrImmutablePair)
	}

	for existing := range s.matches {
		m, e, err := SplitKey(existing)
		if err != nil {
			continue
		}
		if m == mentorID {
			return s.Status(key), fmt.Errorf("mentor %s is matched via %s: %w", mentorID, existing, ErrMentorTaken)
		}
		if e == menteeID {
			return s.Status(key), fmt.Errorf("mentee %s is matched via %s: %w", menteeID, existing, ErrMenteeTaken)
		}
	}

	delete(s.nonMatches, key)
	s.matches[key] = struct{}{}
	s.revision++
	return StatusManualMatch, nil
}

// ToggleNonMatch declares the pair a manual non-match, or reverts it to
// unset when it already is one. Immutable pairs are already excluded by the
// backend and cannot be toggled.
func (s *State) ToggleNonMatch(key string) (Status, error) {
	if _, _, err := SplitKey(key); err != nil {
		return s.Status(key), err
	}

	if _, ok := s.nonMatches[key]; ok {
		delete(s.nonMatches, key)
		s.revision++
		return StatusUnset, nil
	}

	if s.IsImmutable(key) {
		return s.Status(key), fmt.Errorf("%s: %w", key, ErrImmutablePair)
	}

	delete(s.matches, key)
	s.nonMatches[key] = struct{}{}
	s.revision++
	return StatusManualNonMatch, nil
}

// Matches returns the manual match keys, sorted for deterministic iteration.
func (s *State) Matches() []string {
	return sortedKeys(s.matches)
}

// NonMatches returns the manual non-match keys, sorted.
func (s *State) NonMatches() []string {
	return sortedKeys(s.nonMatches)
}

// Revision increases with every successful mutation. The assignment engine
// uses it as a cheap cache key.
func (s *State) Revision() uint64 {
	return s.revision
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

package ai

import (
	"context"

	"github.com/mentorloop/mentormatch/internal/matchpool"
	"github.com/mentorloop/mentormatch/internal/roster"
)

// Explanation is a human-readable rationale for one recommended pairing.
type Explanation struct {
	Summary string
	Raw     string
}

// Explainer produces pairing rationales for administrators reviewing the
// recommended assignment.
type Explainer interface {
	Explain(ctx context.Context, mentor *roster.Mentor, mentee *roster.Mentee, pair *matchpool.PairScore) (*Explanation, error)
}

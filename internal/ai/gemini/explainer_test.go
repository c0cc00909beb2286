package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/matchpool"
	"github.com/mentorloop/mentormatch/internal/roster"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testPairArgs() (*roster.Mentor, *roster.Mentee, *matchpool.PairScore) {
	mentor := &roster.Mentor{Person: roster.Person{ID: "1", Name: "Ann", Languages: []string{"German"}}}
	mentee := &roster.Mentee{
		Person:              roster.Person{ID: "2", Name: "Mia"},
		DesiredMentorGender: "Female",
	}
	pair := &matchpool.PairScore{
		MentorID:   "1",
		MenteeID:   "2",
		Categories: map[string]float64{"gender": 1.0},
		Combined:   0.85,
	}
	return mentor, mentee, pair
}

func TestExplainerExplain(t *testing.T) {
	stub := &stubGenerator{response: `{"summary": "Strong language overlap and close ages."}`}
	explainer := NewExplainer(stub, zap.NewNop(), 0)

	mentor, mentee, pair := testPairArgs()

	explanation, err := explainer.Explain(context.Background(), mentor, mentee, pair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if explanation.Summary != "Strong language overlap and close ages." {
		t.Fatalf("unexpected summary: %q", explanation.Summary)
	}
	if explanation.Raw == "" {
		t.Fatalf("expected raw response to be preserved")
	}

	if !strings.Contains(stub.lastPrompt, `"name": "Ann"`) {
		t.Fatalf("mentor data missing from prompt: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, `"desired_mentor_gender": "Female"`) {
		t.Fatalf("mentee data missing from prompt: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, `"combined": "0.85"`) {
		t.Fatalf("combined score missing from prompt: %s", stub.lastPrompt)
	}
}

func TestExplainerHandlesCodeFences(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"summary\": \"Looks good.\"}\n```"}
	explainer := NewExplainer(stub, zap.NewNop(), 0)

	mentor, mentee, pair := testPairArgs()

	explanation, err := explainer.Explain(context.Background(), mentor, mentee, pair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explanation.Summary != "Looks good." {
		t.Fatalf("unexpected summary: %q", explanation.Summary)
	}
}

func TestExplainerGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	explainer := NewExplainer(stub, zap.NewNop(), 0)

	mentor, mentee, pair := testPairArgs()

	if _, err := explainer.Explain(context.Background(), mentor, mentee, pair); err == nil {
		t.Fatalf("expected generator error to propagate")
	}
}

func TestExplainerRejectsEmptySummary(t *testing.T) {
	stub := &stubGenerator{response: `{"summary": ""}`}
	explainer := NewExplainer(stub, zap.NewNop(), 0)

	mentor, mentee, pair := testPairArgs()

	if _, err := explainer.Explain(context.Background(), mentor, mentee, pair); err == nil {
		t.Fatalf("expected an error for an empty summary")
	}
}

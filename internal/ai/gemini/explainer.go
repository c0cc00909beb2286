package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/ai"
	"github.com/mentorloop/mentormatch/internal/matchpool"
	"github.com/mentorloop/mentormatch/internal/roster"
	"github.com/mentorloop/mentormatch/internal/util"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Explainer asks Gemini for a short rationale describing why a recommended
// pairing works (or where it is weak), grounded in the pair's person records
// and category breakdown.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExplainer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Explainer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) Explain(ctx context.Context, mentor *roster.Mentor, mentee *roster.Mentee, pair *matchpool.PairScore) (*ai.Explanation, error) {
	if mentor == nil {
		return nil, fmt.Errorf("mentor is required")
	}
	if mentee == nil {
		return nil, fmt.Errorf("mentee is required")
	}
	if pair == nil {
		return nil, fmt.Errorf("pair score is required")
	}

	prompt, err := buildPrompt(mentor, mentee, pair)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini explanation request",
		zap.String("pair", pair.Key()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini explanation response",
		zap.String("pair", pair.Key()),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	explanation, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	explanation.Raw = raw
	return explanation, nil
}

func buildPrompt(mentor *roster.Mentor, mentee *roster.Mentee, pair *matchpool.PairScore) (string, error) {
	mentorJSON, err := json.MarshalIndent(personSummary(&mentor.Person), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal mentor payload: %w", err)
	}

	menteePayload := personSummary(&mentee.Person)
	menteePayload["desired_mentor_gender"] = mentee.DesiredMentorGender
	menteeJSON, err := json.MarshalIndent(menteePayload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal mentee payload: %w", err)
	}

	scores := make(map[string]string, len(pair.Categories)+1)
	for category, score := range pair.Categories {
		scores[category] = formatScore(score)
	}
	scores["combined"] = formatScore(pair.Combined)

	scoresJSON, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal score payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{MENTOR_JSON}}", string(mentorJSON))
	prompt = strings.ReplaceAll(prompt, "{{MENTEE_JSON}}", string(menteeJSON))
	prompt = strings.ReplaceAll(prompt, "{{SCORES_JSON}}", string(scoresJSON))
	return prompt, nil
}

func personSummary(person *roster.Person) map[string]any {
	return map[string]any{
		"id":          person.ID,
		"name":        person.Name,
		"gender":      person.Gender,
		"location":    person.Location,
		"study_level": person.StudyLevel,
		"birth_year":  person.BirthYear,
		"languages":   person.Languages,
	}
}

// formatScore renders infinities as strings so the payload stays valid JSON.
func formatScore(score float64) string {
	if math.IsInf(score, 1) {
		return "+Inf"
	}
	if math.IsInf(score, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%.2f", score)
}

func parseResponse(raw string) (*ai.Explanation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	summary, _ := data["summary"].(string)
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, fmt.Errorf("gemini response has no summary")
	}

	return &ai.Explanation{Summary: summary}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

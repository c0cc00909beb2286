package scoring

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestClientComputeDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != matchingPath {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.ManualMatches) != 1 || req.ManualMatches[0] != "1-2" {
			t.Fatalf("manual matches not forwarded: %v", req.ManualMatches)
		}

		w.Header().Set("Content-Type", "application/json")
		// Category keys are mentee-mentor; final matches carry mentor_id/mentee_id.
		w.Write([]byte(`{
			"gender": {"2-1": {"gender_score": 1.0, "mentee_gender": "female"}},
			"academia": {"2-1": 0.8},
			"languages": {"2-1": {"score": 0.6, "common_language": "German"}},
			"age_difference": {"2-1": 0.9},
			"geographic_proximity": {"2-1": "-Infinity"},
			"final_matches": [
				{"mentor_id": "1", "mentee_id": "2", "total_score": 0.85, "is_matched": true},
				{"mentor_id": "3", "mentee_id": "4", "total_score": "Infinity"},
				{"mentor_id": "5", "mentee_id": "6", "total_score": "-inf"},
				{"mentor_id": "7", "mentee_id": "8", "total_score": "garbage"}
			]
		}`))
	}))
	defer server.Close()

	client := New(context.Background(), zap.NewNop(), server.URL)

	results, err := client.Compute(&Request{ManualMatches: []string{"1-2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := results.Categories[CategoryGender]["2-1"]; got != 1.0 {
		t.Fatalf("expected gender score 1.0, got %v", got)
	}
	if got := results.Categories[CategoryAcademia]["2-1"]; got != 0.8 {
		t.Fatalf("expected academia score 0.8, got %v", got)
	}
	if got := results.Categories[CategoryLanguages]["2-1"]; got != 0.6 {
		t.Fatalf("expected languages score 0.6, got %v", got)
	}
	if got := results.Categories[CategoryGeographicProximity]["2-1"]; !math.IsInf(got, -1) {
		t.Fatalf("expected blocked geo score, got %v", got)
	}

	if len(results.FinalMatches) != 3 {
		t.Fatalf("expected the garbage entry to be skipped, got %d matches", len(results.FinalMatches))
	}
	if results.FinalMatches[0].TotalScore != 0.85 || !results.FinalMatches[0].IsMatched {
		t.Fatalf("unexpected first match: %+v", results.FinalMatches[0])
	}
	if !math.IsInf(results.FinalMatches[1].TotalScore, 1) {
		t.Fatalf("expected +Inf total score, got %v", results.FinalMatches[1].TotalScore)
	}
	if !math.IsInf(results.FinalMatches[2].TotalScore, -1) {
		t.Fatalf("expected -Inf total score, got %v", results.FinalMatches[2].TotalScore)
	}
}

func TestClientComputeNumericIdentities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"final_matches": [{"mentor_id": 1, "mentee_id": 2, "total_score": 0.5}]}`))
	}))
	defer server.Close()

	client := New(context.Background(), zap.NewNop(), server.URL)

	results, err := client.Compute(&Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results.FinalMatches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results.FinalMatches))
	}
	if results.FinalMatches[0].MentorID != "1" || results.FinalMatches[0].MenteeID != "2" {
		t.Fatalf("numeric identities should decode to strings, got %+v", results.FinalMatches[0])
	}
}

func TestClientComputeEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(context.Background(), zap.NewNop(), server.URL)

	results, err := client.Compute(&Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results.FinalMatches) != 0 {
		t.Fatalf("missing data must yield empty results, got %d matches", len(results.FinalMatches))
	}
}

func TestClientComputeBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(context.Background(), zap.NewNop(), server.URL)

	if _, err := client.Compute(&Request{}); err == nil {
		t.Fatalf("expected an error for a non-200 response")
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != healthPath {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer server.Close()

	client := New(context.Background(), zap.NewNop(), server.URL)
	if err := client.Health(); err != nil {
		t.Fatalf("unexpected health error: %v", err)
	}
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"elix-client/internal/models"
)

func TestTopics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/topics" || r.Method != http.MethodGet {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.TopicPacks{"Science": {"Gravity", "Volcanoes"}})
	}))
	defer server.Close()

	packs, err := New(server.URL).Topics(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(packs["Science"]) != 2 || packs["Science"][0] != "Gravity" {
		t.Errorf("Unexpected packs: %+v", packs)
	}
}

func TestExplain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ExplainRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Topic != "gravity" || req.Age != 10 {
			t.Errorf("Unexpected request payload: %+v", req)
		}
		json.NewEncoder(w).Encode(models.ExplainResponse{
			Sections: map[string]string{models.SectionExplanation: "Things fall."},
			AudioURL: "/audio/g.wav",
		})
	}))
	defer server.Close()

	resp, err := New(server.URL).Explain(context.Background(), "gravity", 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Sections[models.SectionExplanation] != "Things fall." {
		t.Errorf("Unexpected sections: %+v", resp.Sections)
	}
	if resp.AudioURL != "/audio/g.wav" {
		t.Errorf("Unexpected audio url: %q", resp.AudioURL)
	}
}

func TestExplainStreamCarriesContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ExplainRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Context != "User: earlier question" {
			t.Errorf("Expected conversation context, got %q", req.Context)
		}
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n")
	}))
	defer server.Close()

	body, err := New(server.URL).ExplainStream(context.Background(), "gravity", 10, "User: earlier question")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer body.Close()

	raw, _ := io.ReadAll(body)
	if !strings.Contains(string(raw), "done") {
		t.Errorf("Expected raw stream body, got %q", raw)
	}
}

func TestGenerateQuiz(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.QuizGenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.NumQuestions != 5 || req.Difficulty != "medium" {
			t.Errorf("Unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(models.QuizGenerateResponse{
			Topic: req.Topic,
			Questions: []models.Question{{
				Question: "Q?", Options: map[string]string{"A": "x"}, Correct: "A",
			}},
		})
	}))
	defer server.Close()

	resp, err := New(server.URL).GenerateQuiz(context.Background(), models.QuizGenerateRequest{
		Topic: "gravity", Age: 10, NumQuestions: 5, Difficulty: "medium",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Topic != "gravity" || len(resp.Questions) != 1 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestGenerateQuizServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.QuizGenerateResponse{Error: "model unavailable"})
	}))
	defer server.Close()

	_, err := New(server.URL).GenerateQuiz(context.Background(), models.QuizGenerateRequest{Topic: "gravity"})
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("Expected server-reported error surfaced, got %v", err)
	}
}

func TestGenerateQuizBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL).GenerateQuiz(context.Background(), models.QuizGenerateRequest{Topic: "gravity"})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestAudioURL(t *testing.T) {
	c := New("http://localhost:8000/")

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"relative path", "/audio/a.wav", "http://localhost:8000/audio/a.wav"},
		{"missing slash", "audio/a.wav", "http://localhost:8000/audio/a.wav"},
		{"absolute url", "https://cdn.example.com/a.wav", "https://cdn.example.com/a.wav"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.AudioURL(tc.path); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

// Package stub is an offline stand-in for the remote explanation/quiz
// service. It speaks the full wire contract with canned fixtures: topic
// packs, streamed explanation records, quiz generation and audio files.
// Useful for developing the client without the real backend, and for
// integration tests.
package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"elix-client/internal/models"
)

// Server produces the canned responses. Delay is the pause between
// streamed records; tests set it to zero.
type Server struct {
	Delay time.Duration
}

func NewServer(delay time.Duration) *Server {
	return &Server{Delay: delay}
}

// Router builds the chi router for all service routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/topics", s.handleTopics)
	r.Post("/explain", s.handleExplain)
	r.Post("/explain/stream", s.handleExplainStream)
	r.Post("/quiz/generate", s.handleQuizGenerate)
	r.Get("/audio/{file}", s.handleAudio)

	return r
}

var topicPacks = models.TopicPacks{
	"Science":   {"Gravity", "Photosynthesis", "Volcanoes", "The Water Cycle"},
	"Space":     {"Black Holes", "The Moon", "Why Stars Twinkle"},
	"Animals":   {"Why Cats Purr", "How Birds Fly", "Octopus Brains"},
	"Computers": {"How the Internet Works", "What Is a Program"},
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, topicPacks)
}

func cannedSections(topic string, age int) map[string]string {
	return map[string]string{
		models.SectionExplanation: fmt.Sprintf(
			"%s is easier than it sounds. Imagine taking it apart piece by piece, the way a %d-year-old takes apart a toy to see what makes it tick.",
			topic, age),
		models.SectionExample: fmt.Sprintf(
			"Next time you are at home, look around: you can spot %s at work in everyday things.",
			strings.ToLower(topic)),
		models.SectionQuestion: fmt.Sprintf(
			"Can you think of one place where %s shows up in your own day?",
			strings.ToLower(topic)),
	}
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	writeJSON(w, http.StatusOK, models.ExplainResponse{
		Sections: cannedSections(req.Topic, req.Age),
		AudioURL: "/audio/stub.wav",
	})
}

func (s *Server) handleExplainStream(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(rec models.StreamRecord) {
		raw, _ := json.Marshal(rec)
		fmt.Fprintf(w, "data: %s\n\n", raw)
		flusher.Flush()
		if s.Delay > 0 {
			time.Sleep(s.Delay)
		}
	}

	sections := cannedSections(req.Topic, req.Age)
	for _, name := range models.SectionOrder {
		emit(models.StreamRecord{Type: models.RecordSection, Section: name})
		// Stream word by word so the client can show partial progress.
		words := strings.SplitAfter(sections[name], " ")
		for _, word := range words {
			if r.Context().Err() != nil {
				return
			}
			emit(models.StreamRecord{Type: models.RecordContent, Section: name, Text: word})
		}
	}

	emit(models.StreamRecord{Type: models.RecordAudio, URL: "/audio/stub.wav"})
	emit(models.StreamRecord{Type: models.RecordDone})
}

func (s *Server) handleQuizGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.QuizGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusOK, models.QuizGenerateResponse{Error: "topic is required"})
		return
	}

	n := req.NumQuestions
	if n <= 0 {
		n = 5
	}

	letters := []string{"A", "B", "C", "D"}
	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		correct := letters[i%len(letters)]
		options := map[string]string{}
		for _, letter := range letters {
			if letter == correct {
				options[letter] = fmt.Sprintf("The %s answer about %s", req.Difficulty, req.Topic)
			} else {
				options[letter] = fmt.Sprintf("A distractor about %s (%s)", req.Topic, letter)
			}
		}
		questions = append(questions, models.Question{
			Question:    fmt.Sprintf("Practice question %d about %s?", i+1, req.Topic),
			Options:     options,
			Correct:     correct,
			Explanation: fmt.Sprintf("Option %s is right because of how %s works.", correct, req.Topic),
		})
	}

	writeJSON(w, http.StatusOK, models.QuizGenerateResponse{
		Topic:     req.Topic,
		Questions: questions,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	// 44-byte header of an empty PCM WAV file.
	header := []byte{
		'R', 'I', 'F', 'F', 36, 0, 0, 0, 'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
		0x44, 0xAC, 0, 0, 0x88, 0x58, 0x01, 0, 2, 0, 16, 0,
		'd', 'a', 't', 'a', 0, 0, 0, 0,
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Write(header)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

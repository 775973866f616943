package models

// TopicPacks maps pack name to its ordered topic list, as served by
// GET /topics.
type TopicPacks map[string][]string

// ExplainRequest is the payload for /explain and /explain/stream. Context
// carries the labeled prior turns of the conversation.
type ExplainRequest struct {
	Topic   string `json:"topic"`
	Age     int    `json:"age"`
	Context string `json:"context,omitempty"`
}

// ExplainResponse is the non-streaming /explain reply.
type ExplainResponse struct {
	Sections map[string]string `json:"sections"`
	AudioURL string            `json:"audio_url"`
}

// QuizGenerateRequest is the payload for /quiz/generate.
type QuizGenerateRequest struct {
	Topic        string `json:"topic"`
	Age          int    `json:"age"`
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"`
}

// QuizGenerateResponse is the /quiz/generate reply. Error is set instead
// of Questions when generation fails server-side.
type QuizGenerateResponse struct {
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
	Error     string     `json:"error,omitempty"`
}

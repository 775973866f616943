package models

// Question is one generated quiz question. Options are keyed by letter
// ("A", "B", ...). Questions are fixed at generation time.
type Question struct {
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct"`
	Explanation string            `json:"explanation"`
}

// QuizAnswer records one answered question, in question order.
type QuizAnswer struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation"`
}

// QuizState holds the quiz sub-state of a session while a quiz is active
// or completed. Invariant: len(Answers) == CurrentIndex plus one while
// feedback is showing, and == len(Questions) once completed.
type QuizState struct {
	Topic            string       `json:"topic"`
	Questions        []Question   `json:"questions"`
	CurrentIndex     int          `json:"currentIndex"`
	Score            int          `json:"score"`
	Answers          []QuizAnswer `json:"answers"`
	ShowingFeedback  bool         `json:"showingFeedback"`
	CurrentIsCorrect bool         `json:"currentIsCorrect,omitempty"`
	Completed        bool         `json:"completed,omitempty"`
}

// Current returns the question at the current index.
func (qs *QuizState) Current() *Question {
	if qs.CurrentIndex < 0 || qs.CurrentIndex >= len(qs.Questions) {
		return nil
	}
	return &qs.Questions[qs.CurrentIndex]
}

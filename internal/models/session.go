package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Section names recognized in assistant answers. Feedback is mutually
// exclusive with the explanation triad when rendered.
const (
	SectionExplanation = "Explanation"
	SectionExample     = "Example"
	SectionQuestion    = "Question"
	SectionFeedback    = "Feedback"
)

// SectionOrder is the fixed display order for the explanation triad.
var SectionOrder = []string{SectionExplanation, SectionExample, SectionQuestion}

// Message is one turn in a conversation, either from the user or the
// assistant. The two shapes are distinct types so handling stays
// exhaustive at compile time.
type Message interface {
	MessageRole() string
}

type UserMessage struct {
	ID   uuid.UUID
	Text string
}

func (UserMessage) MessageRole() string { return "user" }

// AssistantMessage is built incrementally from streamed records. Streaming
// stays true until a terminal record arrives or the transport fails; once
// false the message never streams again.
type AssistantMessage struct {
	ID        uuid.UUID
	Sections  map[string]string
	AudioURL  string
	Streaming bool
	Error     bool
}

func (AssistantMessage) MessageRole() string { return "assistant" }

// NewUserMessage creates a user turn with a fresh message id.
func NewUserMessage(text string) *UserMessage {
	return &UserMessage{ID: uuid.New(), Text: text}
}

// NewAssistantMessage creates an empty in-flight assistant turn.
func NewAssistantMessage() *AssistantMessage {
	return &AssistantMessage{
		ID: uuid.New(),
		Sections: map[string]string{
			SectionExplanation: "",
			SectionExample:     "",
			SectionQuestion:    "",
			SectionFeedback:    "",
		},
		Streaming: true,
	}
}

// Messages carries the polymorphic message list through JSON using a
// role-discriminated envelope, so the persisted shape matches the
// documented contract.
type Messages []Message

type messageEnvelope struct {
	ID        string            `json:"id,omitempty"`
	Role      string            `json:"role"`
	Text      string            `json:"text,omitempty"`
	Sections  map[string]string `json:"sections,omitempty"`
	AudioURL  string            `json:"audio_url,omitempty"`
	Streaming bool              `json:"streaming,omitempty"`
	Error     bool              `json:"error,omitempty"`
}

func (ms Messages) MarshalJSON() ([]byte, error) {
	envelopes := make([]messageEnvelope, 0, len(ms))
	for _, m := range ms {
		switch msg := m.(type) {
		case *UserMessage:
			envelopes = append(envelopes, messageEnvelope{
				ID:   msg.ID.String(),
				Role: msg.MessageRole(),
				Text: msg.Text,
			})
		case *AssistantMessage:
			envelopes = append(envelopes, messageEnvelope{
				ID:        msg.ID.String(),
				Role:      msg.MessageRole(),
				Sections:  msg.Sections,
				AudioURL:  msg.AudioURL,
				Streaming: msg.Streaming,
				Error:     msg.Error,
			})
		default:
			return nil, fmt.Errorf("unknown message type %T", m)
		}
	}
	return json.Marshal(envelopes)
}

func (ms *Messages) UnmarshalJSON(data []byte) error {
	var envelopes []messageEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}

	out := make(Messages, 0, len(envelopes))
	for _, env := range envelopes {
		id, err := uuid.Parse(env.ID)
		if err != nil {
			// Sessions persisted before message ids existed.
			id = uuid.New()
		}

		switch env.Role {
		case "user":
			out = append(out, &UserMessage{ID: id, Text: env.Text})
		case "assistant":
			sections := env.Sections
			if sections == nil {
				sections = map[string]string{}
			}
			out = append(out, &AssistantMessage{
				ID:        id,
				Sections:  sections,
				AudioURL:  env.AudioURL,
				Streaming: env.Streaming,
				Error:     env.Error,
			})
		default:
			return fmt.Errorf("unknown message role %q", env.Role)
		}
	}
	*ms = out
	return nil
}

// ChatSession is one topic-scoped conversation thread. ID, Topic, Age and
// CreatedAt are set at creation and never mutated.
type ChatSession struct {
	ID        int64      `json:"id"`
	Topic     string     `json:"topic"`
	Age       int        `json:"age"`
	CreatedAt int64      `json:"createdAt"` // epoch milliseconds, governs expiry
	Messages  Messages   `json:"messages"`
	QuizState *QuizState `json:"quizState,omitempty"`

	// Transient quiz-setup fields.
	QuizTopic     string `json:"quizTopic,omitempty"`
	ShowQuizSetup bool   `json:"showQuizSetup,omitempty"`
}

// NewChatSession creates a session from the first user message. The id is
// derived from the creation timestamp, matching the persisted contract.
func NewChatSession(topic string, age int, now time.Time) *ChatSession {
	return &ChatSession{
		ID:        now.UnixMilli(),
		Topic:     topic,
		Age:       age,
		CreatedAt: now.UnixMilli(),
		Messages:  Messages{NewUserMessage(topic)},
	}
}

// Expired reports whether the session has outlived the retention window.
func (s *ChatSession) Expired(now time.Time, retention time.Duration) bool {
	return now.UnixMilli()-s.CreatedAt >= retention.Milliseconds()
}

// InFlight returns the streaming assistant message, or nil. At most one
// message streams at a time and it is always the last element.
func (s *ChatSession) InFlight() *AssistantMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	if msg, ok := s.Messages[len(s.Messages)-1].(*AssistantMessage); ok && msg.Streaming {
		return msg
	}
	return nil
}

// FindAssistant resolves an assistant message by id.
func (s *ChatSession) FindAssistant(id uuid.UUID) *AssistantMessage {
	for _, m := range s.Messages {
		if msg, ok := m.(*AssistantMessage); ok && msg.ID == id {
			return msg
		}
	}
	return nil
}

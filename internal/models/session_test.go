package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMessageEnvelopeRoundTrip(t *testing.T) {
	assistant := NewAssistantMessage()
	assistant.Sections[SectionExplanation] = "Stars are giant balls of gas."
	assistant.AudioURL = "/audio/stars.wav"
	assistant.Streaming = false

	failed := NewAssistantMessage()
	failed.Sections[SectionExplanation] = "Partial"
	failed.Streaming = false
	failed.Error = true

	original := Messages{
		NewUserMessage("why do stars twinkle"),
		assistant,
		failed,
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded Messages
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if len(decoded) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(decoded))
	}

	user, ok := decoded[0].(*UserMessage)
	if !ok {
		t.Fatalf("Expected user message first, got %T", decoded[0])
	}
	if user.Text != "why do stars twinkle" {
		t.Errorf("Expected user text preserved, got %q", user.Text)
	}

	got, ok := decoded[1].(*AssistantMessage)
	if !ok {
		t.Fatalf("Expected assistant message second, got %T", decoded[1])
	}
	if got.ID != assistant.ID {
		t.Errorf("Expected message id preserved, got %s", got.ID)
	}
	if got.Sections[SectionExplanation] != assistant.Sections[SectionExplanation] {
		t.Errorf("Expected sections preserved, got %q", got.Sections[SectionExplanation])
	}
	if got.AudioURL != "/audio/stars.wav" || got.Streaming || got.Error {
		t.Errorf("Unexpected assistant fields: %+v", got)
	}

	errMsg, ok := decoded[2].(*AssistantMessage)
	if !ok {
		t.Fatalf("Expected assistant message third, got %T", decoded[2])
	}
	if !errMsg.Error {
		t.Error("Expected error flag preserved")
	}
}

func TestUnmarshalRejectsUnknownRole(t *testing.T) {
	var ms Messages
	err := json.Unmarshal([]byte(`[{"role":"system","text":"x"}]`), &ms)
	if err == nil || !strings.Contains(err.Error(), "unknown message role") {
		t.Errorf("Expected unknown role error, got %v", err)
	}
}

func TestUnmarshalToleratesMissingMessageID(t *testing.T) {
	// Sessions persisted before message ids were introduced.
	var ms Messages
	if err := json.Unmarshal([]byte(`[{"role":"user","text":"hi"}]`), &ms); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	user := ms[0].(*UserMessage)
	if user.Text != "hi" {
		t.Errorf("Expected text preserved, got %q", user.Text)
	}
}

func TestNewChatSession(t *testing.T) {
	now := time.Now()
	session := NewChatSession("gravity", 8, now)

	if session.ID != now.UnixMilli() {
		t.Errorf("Expected id derived from creation time, got %d", session.ID)
	}
	if session.CreatedAt != now.UnixMilli() {
		t.Errorf("Expected createdAt %d, got %d", now.UnixMilli(), session.CreatedAt)
	}
	if session.Age != 8 || session.Topic != "gravity" {
		t.Errorf("Unexpected session fields: %+v", session)
	}
	if len(session.Messages) != 1 {
		t.Fatalf("Expected the first user message, got %d messages", len(session.Messages))
	}
	if user, ok := session.Messages[0].(*UserMessage); !ok || user.Text != "gravity" {
		t.Errorf("Expected first message to carry the topic, got %+v", session.Messages[0])
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		age      time.Duration
		expected bool
	}{
		{"fresh session", 1 * time.Hour, false},
		{"at the boundary", 24 * time.Hour, true},
		{"well past retention", 48 * time.Hour, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := NewChatSession("x", 10, now.Add(-tc.age))
			if got := session.Expired(now, 24*time.Hour); got != tc.expected {
				t.Errorf("Expected expired=%v, got %v", tc.expected, got)
			}
		})
	}
}

func TestInFlight(t *testing.T) {
	session := NewChatSession("gravity", 10, time.Now())
	if session.InFlight() != nil {
		t.Error("Expected no in-flight message for a fresh session")
	}

	assistant := NewAssistantMessage()
	session.Messages = append(session.Messages, assistant)
	if session.InFlight() != assistant {
		t.Error("Expected the streaming assistant message")
	}

	assistant.Streaming = false
	if session.InFlight() != nil {
		t.Error("Expected no in-flight message once terminal")
	}
}

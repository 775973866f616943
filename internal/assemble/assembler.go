package assemble

import (
	"github.com/google/uuid"

	"elix-client/internal/models"
)

// Assembler folds decoded stream records into one in-flight assistant
// message. The target is resolved by message id on every transition, so a
// stray record arriving after the message was finalized (or after the
// message disappeared from the session) is a no-op.
type Assembler struct {
	session *models.ChatSession
	msgID   uuid.UUID
}

func New(session *models.ChatSession, msgID uuid.UUID) *Assembler {
	return &Assembler{session: session, msgID: msgID}
}

// target resolves the in-flight message, or nil once it is terminal.
func (a *Assembler) target() *models.AssistantMessage {
	msg := a.session.FindAssistant(a.msgID)
	if msg == nil || !msg.Streaming {
		return nil
	}
	return msg
}

// Apply performs one state transition for a decoded record. Section
// records carry no payload here: each content/update record names its own
// section, so no current-section state is tracked.
func (a *Assembler) Apply(rec models.StreamRecord) {
	msg := a.target()
	if msg == nil {
		return
	}

	switch rec.Type {
	case models.RecordContent:
		msg.Sections[rec.Section] = msg.Sections[rec.Section] + rec.Text
	case models.RecordUpdate:
		msg.Sections[rec.Section] = rec.Text
	case models.RecordAudio:
		msg.AudioURL = rec.URL
	case models.RecordDone:
		msg.Streaming = false
	}
}

// Finalize marks the message terminal if a clean transport close arrived
// before an explicit done record.
func (a *Assembler) Finalize() {
	if msg := a.target(); msg != nil {
		msg.Streaming = false
	}
}

// Fail finalizes the message after a transport failure, preserving
// whatever partial sections were accumulated.
func (a *Assembler) Fail() {
	if msg := a.target(); msg != nil {
		msg.Streaming = false
		msg.Error = true
	}
}

// Done reports whether the message has been finalized (or no longer
// exists in the session).
func (a *Assembler) Done() bool {
	return a.target() == nil
}

// VisibleSections returns the section names the view should render, in
// display order. A non-empty Feedback section marks an answer-evaluation
// turn and suppresses the explanation triad. Otherwise sections appear
// progressively: once they have content, or as a streaming placeholder
// once the preceding section has content.
func VisibleSections(msg *models.AssistantMessage) []string {
	if msg.Sections[models.SectionFeedback] != "" {
		return []string{models.SectionFeedback}
	}

	explanation := msg.Sections[models.SectionExplanation]
	example := msg.Sections[models.SectionExample]
	question := msg.Sections[models.SectionQuestion]

	var visible []string
	if explanation != "" || (msg.Streaming && example == "" && question == "") {
		visible = append(visible, models.SectionExplanation)
	}
	if example != "" || (msg.Streaming && explanation != "" && question == "") {
		visible = append(visible, models.SectionExample)
	}
	if question != "" || (msg.Streaming && example != "") {
		visible = append(visible, models.SectionQuestion)
	}
	return visible
}

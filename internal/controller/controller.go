// Package controller translates user actions into session mutations: it
// owns the session list, drives streamed explanation requests through the
// decoder and assembler, runs the quiz state machine, and mirrors every
// terminal transition into the session store.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"elix-client/internal/assemble"
	"elix-client/internal/client"
	"elix-client/internal/models"
	"elix-client/internal/quiz"
	"elix-client/internal/storage"
	"elix-client/internal/stream"
)

var (
	// ErrNoActiveSession rejects actions that need an active chat.
	ErrNoActiveSession = errors.New("no active chat session")

	// ErrEmptyQuizTopic rejects quiz generation without a topic.
	ErrEmptyQuizTopic = errors.New("quiz topic is empty")

	// ErrNoQuiz rejects quiz play actions while no quiz is active.
	ErrNoQuiz = errors.New("no quiz in progress")

	// ErrUnknownSession rejects selecting a session id that does not exist.
	ErrUnknownSession = errors.New("unknown chat session")
)

// Controller orchestrates sessions, streaming and quizzes. All shared
// state is guarded by mu; the lock is never held across a network await,
// so concurrent streams interleave per record, each targeting its own
// session and message id.
type Controller struct {
	api   *client.Client
	store *storage.SessionStore

	defaultAge   int
	numQuestions int
	difficulty   string

	// OnRecord, when set, observes each applied stream record so a view
	// can render partial progress. Called without the lock held.
	OnRecord func(sessionID int64, rec models.StreamRecord)

	mu       sync.Mutex
	sessions []*models.ChatSession
	activeID int64
	streams  map[int64]*streamHandle // one in-flight stream per session

	stopChan chan struct{}
}

// streamHandle identifies one in-flight stream so a finished send only
// cleans up its own registration, not a newer stream's.
type streamHandle struct {
	cancel context.CancelFunc
}

func New(api *client.Client, store *storage.SessionStore, defaultAge, numQuestions int, difficulty string) *Controller {
	return &Controller{
		api:          api,
		store:        store,
		defaultAge:   defaultAge,
		numQuestions: numQuestions,
		difficulty:   difficulty,
		streams:      map[int64]*streamHandle{},
		stopChan:     make(chan struct{}),
	}
}

// Load restores sessions and the active pointer from the store. A parse
// failure leaves the in-memory list empty and is logged, not fatal.
func (c *Controller) Load(ctx context.Context) {
	sessions, activeID, err := c.store.Load(ctx)
	if err != nil {
		log.Printf("Failed to load stored sessions: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = sessions
	c.activeID = activeID
}

// Sessions returns a snapshot of the session list, newest first.
func (c *Controller) Sessions() []*models.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.ChatSession, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// Active returns the active session, or nil.
func (c *Controller) Active() *models.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active()
}

// active resolves the active session. Caller holds the lock.
func (c *Controller) active() *models.ChatSession {
	for _, session := range c.sessions {
		if session.ID == c.activeID {
			return session
		}
	}
	return nil
}

// NewChat clears the active pointer; the next Send creates a session.
func (c *Controller) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = 0
	c.persistLocked()
}

// SelectChat makes the named session active.
func (c *Controller) SelectChat(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, session := range c.sessions {
		if session.ID == id {
			c.activeID = id
			c.persistLocked()
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownSession, id)
}

// Topics fetches the available topic packs from the service.
func (c *Controller) Topics(ctx context.Context) (models.TopicPacks, error) {
	return c.api.Topics(ctx)
}

// Send submits one user message: it creates the session on first send,
// appends the user turn and an in-flight assistant turn, then consumes the
// streamed response until a terminal record, transport close, or failure.
// Partial sections survive a mid-stream failure; the message is finalized
// with its error flag set and no retry is attempted.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	session := c.active()
	var conversationContext string
	if session == nil {
		session = models.NewChatSession(text, c.defaultAge, time.Now())
		c.sessions = append([]*models.ChatSession{session}, c.sessions...)
		c.activeID = session.ID
	} else {
		conversationContext = BuildContext(session)
		session.Messages = append(session.Messages, models.NewUserMessage(text))
	}

	// A second send in the same session cancels the previous stream, so
	// the session never holds two streaming messages.
	if prev, ok := c.streams[session.ID]; ok {
		prev.cancel()
	}

	assistant := models.NewAssistantMessage()
	session.Messages = append(session.Messages, assistant)
	asm := assemble.New(session, assistant.ID)

	streamCtx, cancel := context.WithCancel(ctx)
	handle := &streamHandle{cancel: cancel}
	c.streams[session.ID] = handle
	sessionID := session.ID
	age := session.Age
	c.persistLocked()
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.streams[sessionID] == handle {
			delete(c.streams, sessionID)
		}
		c.mu.Unlock()
	}()

	body, err := c.api.ExplainStream(streamCtx, text, age, conversationContext)
	if err != nil {
		c.finalize(asm, err)
		return fmt.Errorf("explanation request failed: %w", err)
	}
	defer body.Close()

	err = stream.Decode(streamCtx, body, func(rec models.StreamRecord) error {
		c.mu.Lock()
		asm.Apply(rec)
		c.mu.Unlock()
		if c.OnRecord != nil {
			c.OnRecord(sessionID, rec)
		}
		return nil
	})

	c.finalize(asm, err)
	if err != nil {
		return fmt.Errorf("explanation stream failed: %w", err)
	}
	return nil
}

// finalize closes out the in-flight message once the stream ends. A clean
// close without an explicit done record still terminates the message.
func (c *Controller) finalize(asm *assemble.Assembler, streamErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if streamErr != nil {
		asm.Fail()
	} else {
		asm.Finalize()
	}
	c.persistLocked()
}

// BuildContext concatenates prior turns as labeled lines: "User: <text>"
// for user turns and one "<Section>: <value>" line per non-empty section
// for assistant turns, turns joined by blank lines. This is the only
// session memory that crosses request boundaries.
func BuildContext(session *models.ChatSession) string {
	var turns []string
	for _, m := range session.Messages {
		switch msg := m.(type) {
		case *models.UserMessage:
			turns = append(turns, "User: "+msg.Text)
		case *models.AssistantMessage:
			var parts []string
			for _, name := range []string{
				models.SectionExplanation,
				models.SectionExample,
				models.SectionQuestion,
				models.SectionFeedback,
			} {
				if value := msg.Sections[name]; value != "" {
					parts = append(parts, name+": "+value)
				}
			}
			if len(parts) > 0 {
				turns = append(turns, strings.Join(parts, "\n"))
			}
		}
	}
	return strings.Join(turns, "\n\n")
}

// ShowQuizSetup opens the quiz setup flow for the active session,
// pre-filling the topic from the session's topic or the current draft
// input.
func (c *Controller) ShowQuizSetup(draft string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.active()
	if session == nil {
		return ErrNoActiveSession
	}

	topic := session.Topic
	if topic == "" {
		topic = strings.TrimSpace(draft)
	}
	session.QuizTopic = topic
	session.ShowQuizSetup = true
	c.persistLocked()
	return nil
}

// SetQuizTopic updates the topic being edited in the setup flow.
func (c *Controller) SetQuizTopic(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.active()
	if session == nil {
		return ErrNoActiveSession
	}
	session.QuizTopic = topic
	return nil
}

// StartQuiz validates the setup topic and requests quiz generation. On
// any failure the setup state is retained so the user can retry without
// re-entering the topic.
func (c *Controller) StartQuiz(ctx context.Context) error {
	c.mu.Lock()
	session := c.active()
	if session == nil {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	topic := strings.TrimSpace(session.QuizTopic)
	age := session.Age
	c.mu.Unlock()

	if topic == "" {
		return ErrEmptyQuizTopic
	}

	resp, err := c.api.GenerateQuiz(ctx, models.QuizGenerateRequest{
		Topic:        topic,
		Age:          age,
		NumQuestions: c.numQuestions,
		Difficulty:   c.difficulty,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	session.QuizState = quiz.Start(resp.Topic, resp.Questions)
	session.ShowQuizSetup = false
	c.persistLocked()
	return nil
}

// SubmitQuizAnswer scores the selected option for the current question.
func (c *Controller) SubmitQuizAnswer(option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.active()
	if session == nil || session.QuizState == nil {
		return ErrNoQuiz
	}
	if err := quiz.SubmitAnswer(session.QuizState, option); err != nil {
		return err
	}
	c.persistLocked()
	return nil
}

// NextQuestion advances past feedback to the next question, or completes
// the quiz after the last one.
func (c *Controller) NextQuestion() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.active()
	if session == nil || session.QuizState == nil {
		return ErrNoQuiz
	}
	if err := quiz.Advance(session.QuizState); err != nil {
		return err
	}
	c.persistLocked()
	return nil
}

// TryAgain reopens quiz setup seeded with the completed quiz's topic.
func (c *Controller) TryAgain() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.active()
	if session == nil || session.QuizState == nil {
		return ErrNoQuiz
	}
	session.QuizTopic = session.QuizState.Topic
	session.ShowQuizSetup = true
	session.QuizState = nil
	c.persistLocked()
	return nil
}

// ExitQuiz leaves quiz mode, discarding any quiz state.
func (c *Controller) ExitQuiz() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.active()
	if session == nil {
		return ErrNoActiveSession
	}
	session.QuizState = nil
	session.ShowQuizSetup = false
	session.QuizTopic = ""
	c.persistLocked()
	return nil
}

// StartSweeper runs the retention sweep on the given interval until Stop.
func (c *Controller) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopChan:
				return
			case <-ticker.C:
				c.SweepExpired()
			}
		}
	}()
}

// Stop shuts down the sweeper.
func (c *Controller) Stop() {
	close(c.stopChan)
}

// SweepExpired drops sessions past the retention window, cancels their
// in-flight streams, and clears the active pointer if its session went.
func (c *Controller) SweepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.store.Sweep(c.sessions)
	if len(kept) == len(c.sessions) {
		return
	}

	surviving := make(map[int64]bool, len(kept))
	for _, session := range kept {
		surviving[session.ID] = true
	}
	for id, handle := range c.streams {
		if !surviving[id] {
			handle.cancel()
			delete(c.streams, id)
		}
	}

	removed := len(c.sessions) - len(kept)
	c.sessions = kept
	if c.activeID != 0 && !surviving[c.activeID] {
		c.activeID = 0
	}
	log.Printf("Swept %d expired session(s)", removed)
	c.persistLocked()
}

// persistLocked mirrors the current state into the store, logging rather
// than failing: storage errors never crash the session. Caller holds the
// lock. A background context is used so a canceled stream context cannot
// block the write.
func (c *Controller) persistLocked() {
	ctx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPersist()

	if err := c.store.SaveSessions(ctx, c.sessions); err != nil {
		log.Printf("Failed to persist sessions: %v", err)
	}
	if err := c.store.SaveActiveID(ctx, c.activeID); err != nil {
		log.Printf("Failed to persist active chat id: %v", err)
	}
}

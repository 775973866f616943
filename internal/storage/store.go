package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"elix-client/internal/models"
)

// SessionStore mirrors the session list and active-session pointer into a
// KV backend under the documented keys, applying the retention window on
// load.
type SessionStore struct {
	kv        KV
	retention time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func NewSessionStore(kv KV, retention time.Duration) *SessionStore {
	return &SessionStore{kv: kv, retention: retention, now: time.Now}
}

// Load reads the persisted sessions, drops the expired ones, and rewrites
// the store when anything was dropped. The active id is restored only if
// it still names a surviving session. A missing or unparseable chat list
// yields an empty session list, not an error crash path; the parse error
// is returned so the caller can log it.
func (s *SessionStore) Load(ctx context.Context) ([]*models.ChatSession, int64, error) {
	raw, ok, err := s.kv.Get(ctx, ChatListKey)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", ChatListKey, err)
	}
	if !ok {
		return nil, 0, nil
	}

	var stored []*models.ChatSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, 0, fmt.Errorf("failed to parse %s: %w", ChatListKey, err)
	}

	now := s.now()
	sessions := make([]*models.ChatSession, 0, len(stored))
	for _, session := range stored {
		if !session.Expired(now, s.retention) {
			sessions = append(sessions, session)
		}
	}

	if len(sessions) != len(stored) {
		if err := s.SaveSessions(ctx, sessions); err != nil {
			return nil, 0, err
		}
	}

	activeID, err := s.loadActiveID(ctx, sessions)
	if err != nil {
		return sessions, 0, err
	}
	return sessions, activeID, nil
}

func (s *SessionStore) loadActiveID(ctx context.Context, sessions []*models.ChatSession) (int64, error) {
	raw, ok, err := s.kv.Get(ctx, ActiveChatIDKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", ActiveChatIDKey, err)
	}
	if !ok {
		return 0, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err == nil {
		for _, session := range sessions {
			if session.ID == id {
				return id, nil
			}
		}
	}

	// Stale or unparseable pointer: drop the key.
	if err := s.kv.Delete(ctx, ActiveChatIDKey); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", ActiveChatIDKey, err)
	}
	return 0, nil
}

// SaveSessions writes the session list, deleting both keys when the list
// is empty.
func (s *SessionStore) SaveSessions(ctx context.Context, sessions []*models.ChatSession) error {
	if len(sessions) == 0 {
		if err := s.kv.Delete(ctx, ChatListKey); err != nil {
			return fmt.Errorf("failed to delete %s: %w", ChatListKey, err)
		}
		if err := s.kv.Delete(ctx, ActiveChatIDKey); err != nil {
			return fmt.Errorf("failed to delete %s: %w", ActiveChatIDKey, err)
		}
		return nil
	}

	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to serialize sessions: %w", err)
	}
	if err := s.kv.Set(ctx, ChatListKey, string(raw)); err != nil {
		return fmt.Errorf("failed to write %s: %w", ChatListKey, err)
	}
	return nil
}

// SaveActiveID persists the active-session pointer; id 0 removes it.
func (s *SessionStore) SaveActiveID(ctx context.Context, id int64) error {
	if id == 0 {
		if err := s.kv.Delete(ctx, ActiveChatIDKey); err != nil {
			return fmt.Errorf("failed to delete %s: %w", ActiveChatIDKey, err)
		}
		return nil
	}
	if err := s.kv.Set(ctx, ActiveChatIDKey, strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("failed to write %s: %w", ActiveChatIDKey, err)
	}
	return nil
}

// Sweep returns the sessions still inside the retention window.
func (s *SessionStore) Sweep(sessions []*models.ChatSession) []*models.ChatSession {
	now := s.now()
	kept := make([]*models.ChatSession, 0, len(sessions))
	for _, session := range sessions {
		if !session.Expired(now, s.retention) {
			kept = append(kept, session)
		}
	}
	return kept
}

// Package storage persists chat sessions through a small key-value
// abstraction, mirroring the browser-localStorage shape of the persisted
// contract: string keys, string values, get/set/delete.
package storage

import "context"

// Persisted keys.
const (
	ChatListKey     = "chat_list"      // JSON array of chat sessions
	ActiveChatIDKey = "active_chat_id" // decimal session id, absent if none
)

// KV is the minimal store the session layer needs. Get reports presence
// separately from errors so an absent key is not a failure.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aivistech/infrabot/internal/errors"
)

// SessionStore is the single writer of sessions.json: one ChatSession per
// chat. Same snapshot discipline as the ConfigStore.
type SessionStore struct {
	path  string
	mu    sync.Mutex
	state *SessionState
}

func OpenSessionStore(dir string) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}

	s := &SessionStore{
		path:  filepath.Join(dir, "sessions.json"),
		state: newSessionState(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Session state file absent, starting empty", "path", s.path)
			return s, nil
		}
		return nil, fmt.Errorf("read session state: %w", err)
	}
	if err := json.Unmarshal(data, s.state); err != nil {
		return nil, fmt.Errorf("parse session state %s: %w", s.path, err)
	}
	if s.state.Chats == nil {
		s.state.Chats = make(map[string]*ChatSession)
	}
	slog.Info("Session state loaded", "path", s.path, "chats", len(s.state.Chats))
	return s, nil
}

// Get returns a copy of the chat's session. The zero session (inactive, no
// thread) is returned when the chat has never talked to the bot.
func (s *SessionStore) Get(chatID int64) ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.state.Chats[ChatKey(chatID)]; ok {
		return *sess
	}
	return ChatSession{}
}

// Update mutates the chat's session through fn and persists the snapshot
// before returning. The record is created on first use.
func (s *SessionStore) Update(chatID int64, fn func(*ChatSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	key := ChatKey(chatID)
	sess, ok := next.Chats[key]
	if !ok {
		sess = &ChatSession{}
		next.Chats[key] = sess
	}
	if err := fn(sess); err != nil {
		return err
	}
	sess.LastActive = time.Now()

	if err := persistJSON(s.path, next); err != nil {
		slog.Error("Session snapshot write failed", "path", s.path, "error", err)
		return errors.Wrap(err, "persist session state")
	}

	s.state = next
	return nil
}

// Reset drops the chat's thread handle and deactivates conversation mode.
func (s *SessionStore) Reset(chatID int64) error {
	return s.Update(chatID, func(sess *ChatSession) error {
		sess.Active = false
		sess.ThreadID = ""
		return nil
	})
}

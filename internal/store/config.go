package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aivistech/infrabot/internal/errors"

	"github.com/natefinch/atomic"
)

// ConfigStore is the single writer of config.json: the authorization sets
// and all per-chat server records. Every mutation rewrites the whole
// document atomically before the in-memory state is advanced, so a failed
// write leaves memory and disk consistent with each other.
type ConfigStore struct {
	path  string
	mu    sync.Mutex
	state *ConfigState
}

func OpenConfigStore(dir string) (*ConfigStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}

	s := &ConfigStore{
		path:  filepath.Join(dir, "config.json"),
		state: newConfigState(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Config state file absent, starting empty", "path", s.path)
			return s, nil
		}
		return nil, fmt.Errorf("read config state: %w", err)
	}
	if err := json.Unmarshal(data, s.state); err != nil {
		return nil, fmt.Errorf("parse config state %s: %w", s.path, err)
	}
	if s.state.Chats == nil {
		s.state.Chats = make(map[string]*ChatServers)
	}
	slog.Info("Config state loaded", "path", s.path, "chats", len(s.state.Chats))
	return s, nil
}

// View runs fn against the current state under the store lock. fn must not
// retain or mutate the state.
func (s *ConfigStore) View(fn func(*ConfigState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Update runs fn against a copy of the state and persists the result. The
// in-memory state advances only after the snapshot is durably written; on a
// write failure the mutation is discarded and a Storage error returned.
func (s *ConfigStore) Update(fn func(*ConfigState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(next); err != nil {
		return err
	}

	if err := persistJSON(s.path, next); err != nil {
		slog.Error("Config snapshot write failed", "path", s.path, "error", err)
		return errors.Wrap(err, "persist config state")
	}

	s.state = next
	return nil
}

func persistJSON(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Storage("marshal state: " + err.Error())
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.Storage("write state: " + err.Error())
	}
	return nil
}

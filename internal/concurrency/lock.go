package concurrency

import "sync"

// ChatLockManager serializes per-chat processing. Two messages from the
// same chat cannot race on session transitions or server selection;
// different chats proceed concurrently.
type ChatLockManager struct {
	locks map[int64]*sync.Mutex
	mu    sync.Mutex
}

func NewChatLockManager() *ChatLockManager {
	return &ChatLockManager{
		locks: make(map[int64]*sync.Mutex),
	}
}

func (m *ChatLockManager) Lock(chatID int64) {
	m.mu.Lock()
	lock, ok := m.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[chatID] = lock
	}
	m.mu.Unlock()
	lock.Lock()
}

func (m *ChatLockManager) Unlock(chatID int64) {
	m.mu.Lock()
	lock, ok := m.locks[chatID]
	m.mu.Unlock()
	if ok {
		lock.Unlock()
	}
}

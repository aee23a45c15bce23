package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatLockManager_SerializesSameChat(t *testing.T) {
	m := NewChatLockManager()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock(42)
			counter++
			m.Unlock(42)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestChatLockManager_DifferentChatsDoNotBlock(t *testing.T) {
	m := NewChatLockManager()

	m.Lock(1)
	done := make(chan struct{})
	go func() {
		m.Lock(2)
		m.Unlock(2)
		close(done)
	}()

	<-done
	m.Unlock(1)
}

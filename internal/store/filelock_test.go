package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastLockConfig() StateLockConfig {
	return StateLockConfig{Retry: 5 * time.Millisecond, MaxRetry: 3}
}

func TestAcquireStateLock_SecondInstanceIsRejected(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireStateLock(dir, fastLockConfig())
	require.NoError(t, err)
	defer first.Unlock()

	_, err = AcquireStateLock(dir, fastLockConfig())
	assert.Error(t, err)
}

func TestAcquireStateLock_ReacquireAfterUnlock(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireStateLock(dir, fastLockConfig())
	require.NoError(t, err)
	assert.True(t, first.IsLocked())

	first.Unlock()
	assert.False(t, first.IsLocked())

	second, err := AcquireStateLock(dir, fastLockConfig())
	require.NoError(t, err)
	second.Unlock()
}

func TestStateLock_UnlockIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireStateLock(dir, fastLockConfig())
	require.NoError(t, err)

	lock.Unlock()
	lock.Unlock()
	assert.False(t, lock.IsLocked())
}

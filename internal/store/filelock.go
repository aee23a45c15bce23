package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// StateLock guards the state directory against a second bot instance. Both
// durable documents live under one directory, so one flock covers them.
type StateLock struct {
	fileLock   *flock.Flock
	lockPath   string
	acquiredAt time.Time
}

type StateLockConfig struct {
	Timeout  time.Duration
	Retry    time.Duration
	MaxRetry int
}

func AcquireStateLock(dir string, cfg StateLockConfig) (*StateLock, error) {
	if cfg.Retry <= 0 {
		cfg.Retry = 100 * time.Millisecond
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 50
	}

	lockPath := filepath.Join(dir, "infrabot.lock")
	fileLock := flock.New(lockPath)

	for i := 0; i < cfg.MaxRetry; i++ {
		locked, err := fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			sl := &StateLock{fileLock: fileLock, lockPath: lockPath, acquiredAt: time.Now()}
			slog.Info("State lock acquired", "path", lockPath)
			return sl, nil
		}
		time.Sleep(cfg.Retry)
	}

	return nil, fmt.Errorf("state dir %s is locked by another instance (timeout after %v)", dir, cfg.Timeout)
}

func (sl *StateLock) Unlock() {
	if sl.fileLock == nil {
		return
	}
	if err := sl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release state lock", "path", sl.lockPath, "error", err)
	} else {
		slog.Info("State lock released", "path", sl.lockPath, "held_ms", time.Since(sl.acquiredAt).Milliseconds())
	}
	sl.fileLock = nil
}

func (sl *StateLock) IsLocked() bool {
	return sl.fileLock != nil
}

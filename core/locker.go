package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryLinkLocker serializes link attempts per key inside one process.
// Expired locks may be taken over; a stale handle never releases a newer lock.
type MemoryLinkLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	seq   uint64
	nowFn func() time.Time
}

type memoryLock struct {
	until time.Time
	token uint64
}

func NewMemoryLinkLocker() *MemoryLinkLocker {
	return &MemoryLinkLocker{
		locks: make(map[string]memoryLock),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLinkLocker) Acquire(_ context.Context, key string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: link locker is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("core: lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLinkLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && now.Before(held.until) {
		return nil, fmt.Errorf("core: link lock already held for %q", key)
	}
	l.seq++
	l.locks[key] = memoryLock{until: now.Add(ttl), token: l.seq}
	return &memoryLockHandle{locker: l, key: key, token: l.seq}, nil
}

type memoryLockHandle struct {
	locker *MemoryLinkLocker
	key    string
	token  uint64
	once   sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		defer h.locker.mu.Unlock()
		if held, ok := h.locker.locks[h.key]; ok && held.token == h.token {
			delete(h.locker.locks, h.key)
		}
	})
	return nil
}

func linkLockKey(userID string) string {
	return "banklink:user:" + strings.TrimSpace(userID)
}

var _ LinkLocker = (*MemoryLinkLocker)(nil)

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type event struct {
	success bool
	at      time.Time
}

// MemoryStore 單一程序內的事件紀錄，供開發與測試使用
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]event
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]event)}
}

// CountSince 統計 since 之後（含）的事件數
func (s *MemoryStore) CountSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events[userID] {
		if !e.at.Before(since) {
			count++
		}
	}
	return count, nil
}

// Append 新增一筆事件
func (s *MemoryStore) Append(_ context.Context, userID string, success bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[userID] = append(s.events[userID], event{success: success, at: at})
	return nil
}

// Ping 永遠可用
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close 無需釋放資源
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

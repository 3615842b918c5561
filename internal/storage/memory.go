package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore хранит сессию в памяти процесса. Для тестов и storage.driver=memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *Session
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Create(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := clone(session)
	s.UpdatedAt = m.now().UTC()
	m.session = s
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNoSession
	}
	return clone(m.session), nil
}

func (m *MemoryStore) MergeRecords(ctx context.Context, records []ConnectionRecord) (MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return MergeResult{}, ErrNoSession
	}
	merged, result := Merge(m.session.Records, records)
	m.session.Records = merged
	m.session.UpdatedAt = m.now().UTC()
	return result, nil
}

func (m *MemoryStore) AdvancePage(ctx context.Context, listingURL string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0, ErrNoSession
	}
	m.session.CurrentPageIndex++
	if listingURL != "" {
		m.session.ListingURL = listingURL
	}
	m.session.UpdatedAt = m.now().UTC()
	return m.session.CurrentPageIndex, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, status Status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNoSession
	}
	m.session.Status = status
	m.session.Reason = reason
	m.session.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) SetAutoStart(ctx context.Context, autoStart bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNoSession
	}
	m.session.AutoStart = autoStart
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func clone(s *Session) *Session {
	c := *s
	c.Records = slices.Clone(s.Records)
	return &c
}

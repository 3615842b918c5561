package storage

import (
	"context"
	"errors"
	"time"
)

// Status: состояние сессии выгрузки.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal сообщает, что сессия завершена.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// ErrNoSession возвращается, когда в хранилище нет сессии.
var ErrNoSession = errors.New("no session")

// ConnectionRecord: один контакт из листинга. ProfileURL уникален.
type ConnectionRecord struct {
	Name       string
	Title      string
	Location   string
	ProfileURL string
}

// Session: прогресс выгрузки, переживающий перезагрузки страниц и перезапуски процесса.
type Session struct {
	ID               string
	TargetURL        string
	ListingURL       string // последний известный URL листинга, для resume
	CurrentPageIndex int
	Records          []ConnectionRecord // порядок обнаружения, без дублей
	Status           Status
	Reason           string
	AutoStart        bool
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// MergeResult: итог слияния страницы с накопленными записями.
type MergeResult struct {
	Added      int
	Duplicates int
}

// Store интерфейс хранилища сессии. Хранится одна сессия.
type Store interface {
	// Create заменяет текущую сессию новой
	Create(ctx context.Context, session *Session) error

	// Load возвращает сессию или ErrNoSession
	Load(ctx context.Context) (*Session, error)

	// MergeRecords добавляет записи, которых ещё нет (по ProfileURL)
	MergeRecords(ctx context.Context, records []ConnectionRecord) (MergeResult, error)

	// AdvancePage увеличивает CurrentPageIndex и запоминает URL листинга
	AdvancePage(ctx context.Context, listingURL string) (int, error)

	SetStatus(ctx context.Context, status Status, reason string) error

	SetAutoStart(ctx context.Context, autoStart bool) error

	// Reset удаляет сессию и все записи
	Reset(ctx context.Context) error

	Close() error
}

package app

import "connections-exporter/internal/storage"

// Event: сообщение от сессии выгрузки наблюдателю (CLI).
// Набор типов закрыт: реализации только в этом пакете.
type Event interface {
	isEvent()
}

// Started: сессия запущена или возобновлена.
type Started struct {
	RunID     string
	SessionID string
	TargetURL string
	Resumed   bool
}

// ExtractedData: записи одной страницы после слияния.
type ExtractedData struct {
	Page       int
	Records    []storage.ConnectionRecord
	Added      int
	Duplicates int
	Skipped    int
}

// Progress: оценка прогресса (косметическая).
type Progress struct {
	Percent          int
	PagesProcessed   int
	ConnectionsFound int
}

// Complete: сессия завершилась (успешно или нет).
type Complete struct {
	Status       storage.Status
	Reason       string
	TotalRecords int
	Pages        int
}

// AuthRequired: обнаружена страница входа.
type AuthRequired struct {
	Message string
}

// Log: строка журнала для наблюдателя. Level: info, success, warning, error.
type Log struct {
	Level   string
	Message string
}

func (Started) isEvent()       {}
func (ExtractedData) isEvent() {}
func (Progress) isEvent()      {}
func (Complete) isEvent()      {}
func (AuthRequired) isEvent()  {}
func (Log) isEvent()           {}

// Sink получает события. Вызывается синхронно из цикла сессии.
type Sink func(Event)

func (s Sink) emit(e Event) {
	if s != nil {
		s(e)
	}
}

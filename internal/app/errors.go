package app

import (
	"context"
	"errors"

	"connections-exporter/internal/browser"
)

var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrEntryPointNotFound = errors.New("connections entry point not found")
	ErrUnknownPage        = errors.New("unknown page")
	ErrAlreadyRunning     = errors.New("extraction already running")
	ErrNotResumable       = errors.New("no running session to resume")
)

// Причины завершения сессии, сохраняются в хранилище.
const (
	ReasonNoMorePages        = "no_more_pages"
	ReasonMaxPages           = "max_pages"
	ReasonStopped            = "stopped"
	ReasonAuthRequired       = "auth_required"
	ReasonNavigationTimeout  = "navigation_timeout"
	ReasonElementTimeout     = "element_timeout"
	ReasonEntryPointNotFound = "entry_point_not_found"
	ReasonUnknownPage        = "unknown_page"
	ReasonSessionTimeout     = "session_timeout"
	ReasonBrowserError       = "browser_error"
)

// FailureReason сопоставляет ошибку с причиной отказа сессии.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return ReasonAuthRequired
	case errors.Is(err, browser.ErrNavigationTimeout):
		return ReasonNavigationTimeout
	case errors.Is(err, browser.ErrElementTimeout):
		return ReasonElementTimeout
	case errors.Is(err, ErrEntryPointNotFound):
		return ReasonEntryPointNotFound
	case errors.Is(err, ErrUnknownPage):
		return ReasonUnknownPage
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonSessionTimeout
	default:
		return ReasonBrowserError
	}
}

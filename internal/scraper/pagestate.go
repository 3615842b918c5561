package scraper

import (
	"fmt"
	"regexp"
	"strings"
)

var pageStateRe = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+(\d+)`)

// ParsePageState разбирает текст вида "Page 3 of 12".
func ParsePageState(text string) (current, total int, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, 0, fmt.Errorf("empty page state")
	}

	matches := pageStateRe.FindStringSubmatch(text)
	if matches == nil {
		return 0, 0, fmt.Errorf("unable to parse page state: %q", text)
	}

	current, err = parseIntSafe(matches[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid current page: %w", err)
	}
	total, err = parseIntSafe(matches[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid total pages: %w", err)
	}

	if current < 1 || total < 1 {
		return 0, 0, fmt.Errorf("page numbers must be >= 1: %d of %d", current, total)
	}

	return current, total, nil
}

func parseIntSafe(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q as int: %w", s, err)
	}
	return result, nil
}

package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var ErrInvalidProfileURL = errors.New("invalid profile url")

var spacesRe = regexp.MustCompile(`\s+`)

// CleanText заменяет NBSP, схлопывает пробелы и обрезает края.
func CleanText(text string) string {
	// Заменяем NBSP (\u00A0) на обычный пробел
	text = strings.ReplaceAll(text, "\u00A0", " ")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeURL убирает пробелы и якорь.
func NormalizeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	// Удаляем якори
	if idx := strings.Index(urlStr, "#"); idx > -1 {
		urlStr = urlStr[:idx]
	}
	return urlStr
}

// CanonicalProfileURL приводит ссылку на профиль к ключу дедупликации:
// без query, якоря и завершающего слэша, хост в нижнем регистре.
func CanonicalProfileURL(raw string) (string, error) {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidProfileURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProfileURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidProfileURL)
	}

	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	return u.String(), nil
}

// ValidateProfileURL проверяет, что ссылка ведёт на профиль нужного сайта
// (с учётом поддоменов вроде www. и региональных).
func ValidateProfileURL(raw, domain, profilePath string) (string, error) {
	canonical, err := CanonicalProfileURL(raw)
	if err != nil {
		return "", err
	}

	u, _ := url.Parse(canonical)
	registrable, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidProfileURL, err)
	}
	if !strings.EqualFold(registrable, domain) {
		return "", fmt.Errorf("%w: host %s is not on %s", ErrInvalidProfileURL, u.Hostname(), domain)
	}
	if !strings.Contains(u.Path+"/", profilePath) {
		return "", fmt.Errorf("%w: path %q is not a profile path", ErrInvalidProfileURL, u.Path)
	}

	return canonical, nil
}

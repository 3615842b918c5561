package checksum

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// SessionID генерирует идентификатор сессии по каноническому URL профиля.
// Формула: SHA256(target_url)
func (g *Generator) SessionID(targetURL string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(targetURL)))
	return fmt.Sprintf("%x", hash)
}

// RecordHash генерирует хеш содержимого записи о контакте.
// Формула: SHA256(profile_url|name|title|location)
func (g *Generator) RecordHash(profileURL, name, title, location string) string {
	content := fmt.Sprintf("%s|%s|%s|%s", profileURL, name, title, location)
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}

// VerifyRecordHash проверяет соответствие хеша
func (g *Generator) VerifyRecordHash(expectedHash, profileURL, name, title, location string) bool {
	return g.RecordHash(profileURL, name, title, location) == expectedHash
}

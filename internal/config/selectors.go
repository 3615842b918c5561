package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"connections-exporter/internal/scraper"
)

// LoadSelectors загружает селекторы из YAML файла
func LoadSelectors(filePath string) (*scraper.Selectors, error) {
	if filePath == "" {
		return nil, fmt.Errorf("selectors file path is empty")
	}

	// Проверяем существование файла
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("selectors file not found: %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors file: %w", err)
	}

	return ParseSelectors(data)
}

// ParseSelectors разбирает YAML с селекторами и проверяет обязательные поля.
func ParseSelectors(data []byte) (*scraper.Selectors, error) {
	var selectors scraper.Selectors
	if err := yaml.Unmarshal(data, &selectors); err != nil {
		return nil, fmt.Errorf("failed to parse selectors YAML: %w", err)
	}

	if err := validateSelectors(&selectors); err != nil {
		return nil, err
	}

	return &selectors, nil
}

// LoadSiteSelectors загружает селекторы из selectors_file и дополняет их
// URL-паттернами из секции site.
func (c *Config) LoadSiteSelectors(configDir string) (*scraper.Selectors, error) {
	filePath := c.SelectorsFile

	// Если путь относительный, делаем его относительно конфига
	if !filepath.IsAbs(filePath) && configDir != "" {
		filePath = filepath.Join(configDir, filePath)
	}

	selectors, err := LoadSelectors(filePath)
	if err != nil {
		return nil, err
	}
	c.ApplySite(selectors)
	return selectors, nil
}

// ApplySite копирует URL-паттерны сайта в селекторы.
func (c *Config) ApplySite(s *scraper.Selectors) {
	s.ProfilePath = c.Site.ProfilePathPattern
	s.ListingPath = c.Site.ListingPathPattern
	s.LoginPath = c.Site.LoginPathPattern
	s.EntryPointHref = c.Site.EntryPointHrefPattern
}

// validateSelectors проверяет минимальный набор селекторов
func validateSelectors(s *scraper.Selectors) error {
	if s.ListContainer == "" {
		return fmt.Errorf("list_container is required")
	}
	if s.CardSelectors == "" {
		return fmt.Errorf("card_selectors is required")
	}
	if len(s.NameSelectors) == 0 {
		return fmt.Errorf("name_selectors is required")
	}
	if len(s.ProfileLinkSelectors) == 0 {
		return fmt.Errorf("profile_link_selectors is required")
	}
	if len(s.EntryPointSelectors) == 0 {
		return fmt.Errorf("entry_point_selectors is required")
	}
	if s.Pagination == "" {
		return fmt.Errorf("pagination is required")
	}
	if s.PageState == "" {
		return fmt.Errorf("page_state is required")
	}
	if s.NextButton == "" {
		return fmt.Errorf("next_button is required")
	}
	if len(s.LoginIndicators) == 0 {
		return fmt.Errorf("login_indicators is required")
	}

	return nil
}

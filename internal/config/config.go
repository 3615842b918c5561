package config

import (
	"fmt"
	"time"
)

type Config struct {
	Browser       BrowserConfig       `yaml:"browser"`
	Site          SiteConfig          `yaml:"site"`
	Timeouts      TimeoutsConfig      `yaml:"timeouts"`
	Pagination    PaginationConfig    `yaml:"pagination"`
	Scroll        ScrollConfig        `yaml:"scroll"`
	Pacing        PacingConfig        `yaml:"pacing"`
	Backoff       BackoffConfig       `yaml:"backoff"`
	SelectorsFile string              `yaml:"selectors_file"`
	Storage       StorageConfig       `yaml:"storage"`
	Export        ExportConfig        `yaml:"export"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type BrowserConfig struct {
	Driver      string `yaml:"driver"`
	Headless    bool   `yaml:"headless"`
	NoSandbox   bool   `yaml:"no_sandbox"`
	ChromePath  string `yaml:"chrome_path"`
	UserDataDir string `yaml:"user_data_dir"`
	Stealth     bool   `yaml:"stealth"`
	UserAgent   string `yaml:"user_agent"`
	NavigateS   int    `yaml:"navigate_timeout_s"`
	MaxRetries  int    `yaml:"max_retries"`
}

type SiteConfig struct {
	Domain                string `yaml:"domain"`
	ProfilePathPattern    string `yaml:"profile_path_pattern"`
	ListingPathPattern    string `yaml:"listing_path_pattern"`
	LoginPathPattern      string `yaml:"login_path_pattern"`
	EntryPointHrefPattern string `yaml:"entry_point_href_pattern"`
}

type TimeoutsConfig struct {
	ElementWaitMS     int `yaml:"element_wait_ms"`
	NavigationSettleS int `yaml:"navigation_settle_s"`
	ScrollCheckMS     int `yaml:"scroll_check_ms"`
	SessionHardS      int `yaml:"session_hard_s"`
}

type PaginationConfig struct {
	Retries          int `yaml:"retries"`
	RetryWaitMS      int `yaml:"retry_wait_ms"`
	RetryPauseMS     int `yaml:"retry_pause_ms"`
	LoadingExtraWait int `yaml:"loading_extra_waits"`
	MaxPages         int `yaml:"max_pages"` // 0: без ограничения
}

type ScrollConfig struct {
	Steps           int     `yaml:"steps"`
	StepDelayMinMS  int     `yaml:"step_delay_min_ms"`
	StepDelayMaxMS  int     `yaml:"step_delay_max_ms"`
	AnimationMS     int     `yaml:"animation_ms"`
	FrameMS         int     `yaml:"frame_ms"`
	CardsSettleMS   int     `yaml:"cards_settle_ms"`
	FinalSettleMult float64 `yaml:"final_settle_multiplier"`
}

type PacingConfig struct {
	ProfileSettleMS    int `yaml:"profile_settle_ms"`
	ContainerSettleMS  int `yaml:"container_settle_ms"`
	PrePaginationMinMS int `yaml:"pre_pagination_min_ms"`
	PrePaginationMaxMS int `yaml:"pre_pagination_max_ms"`
	PreClickMinMS      int `yaml:"pre_click_min_ms"`
	PreClickMaxMS      int `yaml:"pre_click_max_ms"`
	PostNavMinMS       int `yaml:"post_navigation_min_ms"`
	PostNavMaxMS       int `yaml:"post_navigation_max_ms"`
	PostScrollMinMS    int `yaml:"post_scroll_min_ms"`
	PostScrollMaxMS    int `yaml:"post_scroll_max_ms"`
	NavigationsPerMin  int `yaml:"navigations_per_minute"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type ObservabilityConfig struct {
	LogPath       string `yaml:"log_path"`
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

// Default возвращает конфиг со значениями по умолчанию.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Driver:     "rod",
			Headless:   false,
			Stealth:    true,
			NavigateS:  40,
			MaxRetries: 2,
		},
		Site: SiteConfig{
			Domain:                "linkedin.com",
			ProfilePathPattern:    "/in/",
			ListingPathPattern:    "/search/results/people/",
			LoginPathPattern:      "/login",
			EntryPointHrefPattern: "/search/results/people/?connectionOf",
		},
		Timeouts: TimeoutsConfig{
			ElementWaitMS:     10000,
			NavigationSettleS: 15,
			ScrollCheckMS:     5000,
			SessionHardS:      3600,
		},
		Pagination: PaginationConfig{
			Retries:          3,
			RetryWaitMS:      5000,
			RetryPauseMS:     2000,
			LoadingExtraWait: 3,
			MaxPages:         0,
		},
		Scroll: ScrollConfig{
			Steps:           5,
			StepDelayMinMS:  800,
			StepDelayMaxMS:  1200,
			AnimationMS:     1000,
			FrameMS:         50,
			CardsSettleMS:   1000,
			FinalSettleMult: 1.5,
		},
		Pacing: PacingConfig{
			ProfileSettleMS:    3000,
			ContainerSettleMS:  1000,
			PrePaginationMinMS: 2000,
			PrePaginationMaxMS: 3000,
			PreClickMinMS:      2000,
			PreClickMaxMS:      3000,
			PostNavMinMS:       3000,
			PostNavMaxMS:       4000,
			PostScrollMinMS:    1000,
			PostScrollMaxMS:    2000,
			NavigationsPerMin:  12,
		},
		Backoff: BackoffConfig{
			MinMS:     500,
			MaxMS:     4000,
			JitterPct: 20,
		},
		SelectorsFile: "configs/selectors.yaml",
		Storage: StorageConfig{
			Driver:           "sqlite",
			DSN:              "connections.db",
			CommandTimeoutMS: 5000,
		},
		Export: ExportConfig{
			Path: "connections.csv",
		},
		Observability: ObservabilityConfig{
			LogPath:       "logs/connections-exporter.log",
			LogLevel:      "info",
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			LogMaxAgeDays: 14,
		},
	}
}

// Validation
func (c *Config) Validate() error {
	if c.Browser.Driver != "rod" && c.Browser.Driver != "chromedp" {
		return fmt.Errorf("browser.driver must be 'rod' or 'chromedp'")
	}
	if c.Browser.NavigateS <= 0 {
		return fmt.Errorf("browser.navigate_timeout_s must be > 0")
	}
	if c.Browser.MaxRetries < 0 {
		return fmt.Errorf("browser.max_retries must be >= 0")
	}
	if c.Site.Domain == "" {
		return fmt.Errorf("site.domain is required")
	}
	if c.Site.ProfilePathPattern == "" {
		return fmt.Errorf("site.profile_path_pattern is required")
	}
	if c.Site.ListingPathPattern == "" {
		return fmt.Errorf("site.listing_path_pattern is required")
	}
	if c.Site.EntryPointHrefPattern == "" {
		return fmt.Errorf("site.entry_point_href_pattern is required")
	}
	if c.Timeouts.ElementWaitMS <= 0 {
		return fmt.Errorf("timeouts.element_wait_ms must be > 0")
	}
	if c.Timeouts.NavigationSettleS <= 0 {
		return fmt.Errorf("timeouts.navigation_settle_s must be > 0")
	}
	if c.Timeouts.ScrollCheckMS <= 0 {
		return fmt.Errorf("timeouts.scroll_check_ms must be > 0")
	}
	if c.Timeouts.SessionHardS < 0 {
		return fmt.Errorf("timeouts.session_hard_s must be >= 0")
	}
	if c.Pagination.Retries <= 0 {
		return fmt.Errorf("pagination.retries must be > 0")
	}
	if c.Pagination.RetryWaitMS <= 0 {
		return fmt.Errorf("pagination.retry_wait_ms must be > 0")
	}
	if c.Pagination.LoadingExtraWait < 0 {
		return fmt.Errorf("pagination.loading_extra_waits must be >= 0")
	}
	if c.Pagination.MaxPages < 0 {
		return fmt.Errorf("pagination.max_pages must be >= 0")
	}
	if c.Scroll.Steps <= 0 {
		return fmt.Errorf("scroll.steps must be > 0")
	}
	if c.Scroll.StepDelayMinMS < 0 || c.Scroll.StepDelayMinMS > c.Scroll.StepDelayMaxMS {
		return fmt.Errorf("scroll.step_delay_min_ms must be between 0 and scroll.step_delay_max_ms")
	}
	if c.Scroll.FrameMS <= 0 {
		return fmt.Errorf("scroll.frame_ms must be > 0")
	}
	if c.Scroll.FinalSettleMult < 1 {
		return fmt.Errorf("scroll.final_settle_multiplier must be >= 1")
	}
	if c.Pacing.PrePaginationMinMS > c.Pacing.PrePaginationMaxMS {
		return fmt.Errorf("pacing.pre_pagination_min_ms must be <= pacing.pre_pagination_max_ms")
	}
	if c.Pacing.PreClickMinMS > c.Pacing.PreClickMaxMS {
		return fmt.Errorf("pacing.pre_click_min_ms must be <= pacing.pre_click_max_ms")
	}
	if c.Pacing.PostNavMinMS > c.Pacing.PostNavMaxMS {
		return fmt.Errorf("pacing.post_navigation_min_ms must be <= pacing.post_navigation_max_ms")
	}
	if c.Pacing.PostScrollMinMS > c.Pacing.PostScrollMaxMS {
		return fmt.Errorf("pacing.post_scroll_min_ms must be <= pacing.post_scroll_max_ms")
	}
	if c.Pacing.NavigationsPerMin <= 0 {
		return fmt.Errorf("pacing.navigations_per_minute must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.SelectorsFile == "" {
		return fmt.Errorf("selectors_file is required")
	}
	switch c.Storage.Driver {
	case "sqlite", "mssql", "memory":
	default:
		return fmt.Errorf("storage.driver must be 'sqlite', 'mssql' or 'memory'")
	}
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	if c.Export.Path == "" {
		return fmt.Errorf("export.path is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetNavigateTimeout() time.Duration {
	return time.Duration(c.Browser.NavigateS) * time.Second
}

func (c *Config) GetElementWaitTimeout() time.Duration {
	return time.Duration(c.Timeouts.ElementWaitMS) * time.Millisecond
}

func (c *Config) GetNavigationTimeout() time.Duration {
	return time.Duration(c.Timeouts.NavigationSettleS) * time.Second
}

func (c *Config) GetScrollCheckTimeout() time.Duration {
	return time.Duration(c.Timeouts.ScrollCheckMS) * time.Millisecond
}

func (c *Config) GetSessionHardTimeout() time.Duration {
	return time.Duration(c.Timeouts.SessionHardS) * time.Second
}

func (c *Config) GetPaginationRetryWait() time.Duration {
	return time.Duration(c.Pagination.RetryWaitMS) * time.Millisecond
}

func (c *Config) GetPaginationRetryPause() time.Duration {
	return time.Duration(c.Pagination.RetryPauseMS) * time.Millisecond
}

func (c *Config) GetScrollAnimation() time.Duration {
	return time.Duration(c.Scroll.AnimationMS) * time.Millisecond
}

func (c *Config) GetScrollFrame() time.Duration {
	return time.Duration(c.Scroll.FrameMS) * time.Millisecond
}

func (c *Config) GetCardsSettle() time.Duration {
	return time.Duration(c.Scroll.CardsSettleMS) * time.Millisecond
}

func (c *Config) GetProfileSettle() time.Duration {
	return time.Duration(c.Pacing.ProfileSettleMS) * time.Millisecond
}

func (c *Config) GetContainerSettle() time.Duration {
	return time.Duration(c.Pacing.ContainerSettleMS) * time.Millisecond
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

// Span описывает случайный интервал [Min, Max].
type Span struct {
	Min time.Duration
	Max time.Duration
}

func ms(minMS, maxMS int) Span {
	return Span{Min: time.Duration(minMS) * time.Millisecond, Max: time.Duration(maxMS) * time.Millisecond}
}

func (c *Config) GetScrollStepDelay() Span {
	return ms(c.Scroll.StepDelayMinMS, c.Scroll.StepDelayMaxMS)
}

func (c *Config) GetPrePaginationPause() Span {
	return ms(c.Pacing.PrePaginationMinMS, c.Pacing.PrePaginationMaxMS)
}

func (c *Config) GetPreClickPause() Span {
	return ms(c.Pacing.PreClickMinMS, c.Pacing.PreClickMaxMS)
}

func (c *Config) GetPostNavigationSettle() Span {
	return ms(c.Pacing.PostNavMinMS, c.Pacing.PostNavMaxMS)
}

func (c *Config) GetPostScrollPause() Span {
	return ms(c.Pacing.PostScrollMinMS, c.Pacing.PostScrollMaxMS)
}

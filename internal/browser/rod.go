package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
)

// RodPage управляет вкладкой через go-rod.
type RodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	nav      *navigator
}

func openRod(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*RodPage, error) {
	l := launcher.New().Headless(cfg.Browser.Headless).NoSandbox(cfg.Browser.NoSandbox)
	if cfg.Browser.ChromePath != "" {
		l = l.Bin(cfg.Browser.ChromePath)
	}
	if cfg.Browser.UserDataDir != "" {
		// Профиль пользователя с активной сессией входа
		l = l.UserDataDir(cfg.Browser.UserDataDir)
	}

	u, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var page *rod.Page
	if cfg.Browser.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	if cfg.Browser.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.Browser.UserAgent}); err != nil {
			logger.Warn("failed to override user agent", "error", err)
		}
	}

	p := &RodPage{launcher: l, browser: b, page: page}
	p.nav = newNavigator(cfg, logger, p.navigateOnce)
	return p, nil
}

func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	return p.nav.Navigate(ctx, url)
}

func (p *RodPage) navigateOnce(ctx context.Context, url string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *RodPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	err := Await(ctx, timeout, Tolerant(func(ctx context.Context) (bool, error) {
		remaining := remainingMS(ctx)
		res, err := p.page.Context(ctx).Evaluate(rod.Eval(waitForSelectorJS, selector, remaining).ByPromise())
		if err != nil {
			return false, err
		}
		return res.Value.Bool(), nil
	}))
	return selectorErr(err, selector)
}

func (p *RodPage) ClickAndWaitURLChange(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	before, err := p.URL(ctx)
	if err != nil {
		return "", err
	}

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	changed := make(chan string, 1)
	notify := func(u string) {
		if u == before {
			return
		}
		select {
		case changed <- u:
		default:
		}
	}

	// Подписка до клика, чтобы не пропустить событие
	wait := p.page.Context(listenCtx).EachEvent(
		func(e *proto.PageFrameNavigated) bool {
			if e.Frame.ParentID == "" {
				notify(e.Frame.URL)
			}
			return false
		},
		func(e *proto.PageNavigatedWithinDocument) bool {
			notify(e.URL)
			return false
		},
	)
	go wait()

	el, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return "", err
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click %s: %w", selector, err)
	}

	var next string
	urlChanged := func(ctx context.Context) (bool, error) {
		// SPA может сменить URL без события навигации
		current, err := p.URL(ctx)
		if err != nil || current == before {
			return false, nil
		}
		next = current
		return true, nil
	}
	err = Await(ctx, timeout, Either(Signal(changed, &next), urlChanged))
	if errors.Is(err, ErrWaitTimeout) {
		return "", ErrNavigationTimeout
	}
	return next, err
}

func (p *RodPage) ScrollMetrics(ctx context.Context) (ScrollMetrics, error) {
	var m ScrollMetrics
	res, err := p.page.Context(ctx).Eval(scrollMetricsJS)
	if err != nil {
		return m, err
	}
	err = res.Value.Unmarshal(&m)
	return m, err
}

func (p *RodPage) ScrollTo(ctx context.Context, y float64) error {
	_, err := p.page.Context(ctx).Eval(scrollToJS, y)
	return err
}

func (p *RodPage) ScrollIntoView(ctx context.Context, selector string) error {
	res, err := p.page.Context(ctx).Eval(scrollIntoViewJS, selector)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// Close закрывает вкладку и браузер.
func (p *RodPage) Close() error {
	var errs []error
	if err := p.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	p.launcher.Kill()
	return errors.Join(errs...)
}

func remainingMS(ctx context.Context) int64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	ms := time.Until(deadline).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func selectorErr(err error, selector string) error {
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("%w: %s", ErrElementTimeout, selector)
	}
	return err
}

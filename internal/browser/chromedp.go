package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
)

// ChromedpPage управляет вкладкой через chromedp.
type ChromedpPage struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	nav         *navigator
}

func openChromedp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*ChromedpPage, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.Browser.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.Browser.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Browser.ChromePath))
	}
	if cfg.Browser.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Browser.UserDataDir))
	}
	if cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Browser.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	p := &ChromedpPage{tabCtx: tabCtx, tabCancel: tabCancel, allocCancel: allocCancel}
	p.nav = newNavigator(cfg, logger, p.navigateOnce)

	// Первый Run запускает процесс браузера на контексте вкладки. Производный
	// контекст здесь нельзя: его отмена завершает браузер.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		_ = p.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return p, nil
}

// run выполняет действия во вкладке, отменяя их вместе с ctx вызывающего.
func (p *ChromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var dlCancel context.CancelFunc
		runCtx, dlCancel = context.WithDeadline(runCtx, deadline)
		defer dlCancel()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *ChromedpPage) evaluate(ctx context.Context, js string, res any, args ...any) error {
	expr, err := callExpression(js, args...)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.Evaluate(expr, res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

func (p *ChromedpPage) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, chromedp.Location(&u))
	return u, err
}

func (p *ChromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *ChromedpPage) Navigate(ctx context.Context, url string) error {
	return p.nav.Navigate(ctx, url)
}

func (p *ChromedpPage) navigateOnce(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *ChromedpPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	err := Await(ctx, timeout, Tolerant(func(ctx context.Context) (bool, error) {
		var found bool
		if err := p.evaluate(ctx, waitForSelectorJS, &found, selector, remainingMS(ctx)); err != nil {
			return false, err
		}
		return found, nil
	}))
	return selectorErr(err, selector)
}

func (p *ChromedpPage) ClickAndWaitURLChange(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	before, err := p.URL(ctx)
	if err != nil {
		return "", err
	}

	listenCtx, cancel := context.WithCancel(p.tabCtx)
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
	chromedp.ListenTarget(listenCtx, func(ev any) {
		switch e := ev.(type) {
		case *cdppage.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				notify(e.Frame.URL)
			}
		case *cdppage.EventNavigatedWithinDocument:
			notify(e.URL)
		}
	})

	var clicked bool
	if err := p.evaluate(ctx, clickJS, &clicked, selector); err != nil {
		return "", fmt.Errorf("click %s: %w", selector, err)
	}
	if !clicked {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	var next string
	urlChanged := func(ctx context.Context) (bool, error) {
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

func (p *ChromedpPage) ScrollMetrics(ctx context.Context) (ScrollMetrics, error) {
	var m ScrollMetrics
	err := p.evaluate(ctx, scrollMetricsJS, &m)
	return m, err
}

func (p *ChromedpPage) ScrollTo(ctx context.Context, y float64) error {
	var ok bool
	return p.evaluate(ctx, scrollToJS, &ok, y)
}

func (p *ChromedpPage) ScrollIntoView(ctx context.Context, selector string) error {
	var ok bool
	if err := p.evaluate(ctx, scrollIntoViewJS, &ok, selector); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// Close закрывает вкладку и завершает процесс браузера.
func (p *ChromedpPage) Close() error {
	err := chromedp.Cancel(p.tabCtx)
	p.tabCancel()
	p.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

const clickJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.click();
	return true;
}`

// callExpression собирает вызов функции js с аргументами, закодированными в JSON.
func callExpression(js string, args ...any) (string, error) {
	encoded := ""
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("encode argument %d: %w", i, err)
		}
		if i > 0 {
			encoded += ", "
		}
		encoded += string(b)
	}
	return fmt.Sprintf("(%s)(%s)", js, encoded), nil
}

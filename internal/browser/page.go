package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementTimeout возвращается, когда селектор не появился за отведённое время.
	ErrElementTimeout = errors.New("element wait timed out")
	// ErrNavigationTimeout возвращается, когда URL не сменился после клика.
	ErrNavigationTimeout = errors.New("navigation wait timed out")
	// ErrElementNotFound возвращается, когда элемента для действия нет на странице.
	ErrElementNotFound = errors.New("element not found")
)

// ScrollMetrics описывает положение прокрутки документа.
type ScrollMetrics struct {
	ScrollHeight   float64 `json:"scrollHeight"`
	ScrollY        float64 `json:"scrollY"`
	ViewportHeight float64 `json:"viewportHeight"`
}

// Page: одна вкладка браузера, которой управляет приложение.
type Page interface {
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	ClickAndWaitURLChange(ctx context.Context, selector string, timeout time.Duration) (string, error)
	ScrollMetrics(ctx context.Context) (ScrollMetrics, error)
	ScrollTo(ctx context.Context, y float64) error
	ScrollIntoView(ctx context.Context, selector string) error
	Close() error
}

// waitForSelectorJS резолвится true, как только селектор появится в DOM, или false по таймауту.
const waitForSelectorJS = `(sel, ms) => new Promise((resolve) => {
	if (document.querySelector(sel)) { resolve(true); return; }
	let timer = null;
	const obs = new MutationObserver(() => {
		if (document.querySelector(sel)) {
			obs.disconnect();
			clearTimeout(timer);
			resolve(true);
		}
	});
	obs.observe(document.documentElement, { childList: true, subtree: true, attributes: true });
	timer = setTimeout(() => { obs.disconnect(); resolve(!!document.querySelector(sel)); }, ms);
})`

const scrollMetricsJS = `() => ({
	scrollHeight: document.documentElement.scrollHeight,
	scrollY: window.scrollY,
	viewportHeight: window.innerHeight
})`

const scrollToJS = `(y) => { window.scrollTo(0, y); return true; }`

const scrollIntoViewJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({ behavior: "smooth", block: "center" });
	return true;
}`

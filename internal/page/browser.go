package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/waitfor"
)

// frameScript snapshots every iframe. Reading contentDocument throws for cross-origin
// frames; those come back with a null html.
const frameScript = `Array.from(document.getElementsByTagName('iframe')).map(function (f) {
	var html = null;
	try {
		if (f.contentDocument && f.contentDocument.body) {
			html = f.contentDocument.documentElement.outerHTML;
		}
	} catch (e) {}
	return {src: f.src || "", html: html};
})`

// selectorPollInterval is how often the wait selector is re-checked.
const selectorPollInterval = 250 * time.Millisecond

// BrowserLoaderConfig configures a BrowserLoader.
type BrowserLoaderConfig struct {
	// Timeout bounds the whole render. Defaults to 60s.
	Timeout time.Duration

	// UserDataDir points Chrome at an existing profile so the recruiting session is reused.
	UserDataDir string

	// WaitSelector, when set, must match an element before the page is captured.
	WaitSelector string

	// WaitTimeout bounds the WaitSelector wait. Defaults to 15s.
	WaitTimeout time.Duration

	// Clock drives the selector poll and its deadline. Defaults to clock.WallClock.
	Clock clock.Clock

	// Jar receives the browser's cookies for CookieURLs after the page is captured,
	// so subsequent HTTP fetches carry the same session.
	Jar        http.CookieJar
	CookieURLs []string

	Logger *logrus.Entry
}

// BrowserLoader renders pages in headless Chrome. Requires Chrome/Chromium on the system.
type BrowserLoader struct {
	cfg    BrowserLoaderConfig
	logger *logrus.Entry
}

// NewBrowserLoader creates a BrowserLoader.
func NewBrowserLoader(cfg BrowserLoaderConfig) *BrowserLoader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &BrowserLoader{cfg: cfg, logger: logger}
}

type frameSnapshot struct {
	Src  string  `json:"src"`
	HTML *string `json:"html"`
}

// Load navigates to location and captures the rendered document and its iframes.
func (b *BrowserLoader) Load(ctx context.Context, location string) (*Page, error) {
	b.logger.WithField("url", location).Debug("starting headless browser")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.cfg.UserDataDir))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.cfg.Timeout)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(location), chromedp.WaitReady("body")); err != nil {
		return nil, &Error{URL: location, Message: "browser navigation failed", Cause: err}
	}

	if b.cfg.WaitSelector != "" {
		if err := b.waitForSelector(browserCtx, b.cfg.WaitSelector); err != nil {
			return nil, &Error{URL: location, Message: "page did not become ready", Cause: err}
		}
	}

	var html string
	var frames []frameSnapshot
	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(frameScript, &frames),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if b.cfg.Jar == nil {
				return nil
			}
			urls := append([]string{location}, b.cfg.CookieURLs...)
			var err error
			cookies, err = network.GetCookies().WithURLs(urls).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &Error{URL: location, Message: "browser capture failed", Cause: err}
	}

	if b.cfg.Jar != nil {
		exportCookies(b.cfg.Jar, append([]string{location}, b.cfg.CookieURLs...), cookies)
	}

	p := &Page{URL: location, HTML: html, Frames: framesFromSnapshots(frames)}
	b.logger.WithFields(logrus.Fields{"url": location, "bytes": len(html), "frames": len(p.Frames), "cookies": len(cookies)}).Debug("page rendered")
	return p, nil
}

func (b *BrowserLoader) waitForSelector(ctx context.Context, selector string) error {
	script := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	cond := func(ctx context.Context) (bool, error) {
		var found bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &found)); err != nil {
			return false, err
		}
		return found, nil
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	return waitfor.Until(ctx, b.cfg.Clock, selector, cond, waitfor.Ticker(pollCtx, b.cfg.Clock, selectorPollInterval), b.cfg.WaitTimeout)
}

func framesFromSnapshots(snapshots []frameSnapshot) []Frame {
	frames := make([]Frame, 0, len(snapshots))
	for _, s := range snapshots {
		frame := Frame{Src: s.Src}
		if s.HTML != nil {
			frame.HTML = *s.HTML
			frame.Accessible = true
		}
		frames = append(frames, frame)
	}
	return frames
}

// exportCookies copies browser cookies into jar for every URL in urls.
func exportCookies(jar http.CookieJar, urls []string, cookies []*network.Cookie) {
	if len(cookies) == 0 {
		return
	}
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		jar.SetCookies(u, httpCookies)
	}
}

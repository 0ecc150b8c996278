// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/config"
)

// Page drives one browser tab and implements schemas.PageHandle.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger
	closed atomic.Bool
}

func newPage(ctx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Page {
	return &Page{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("page"),
	}
}

// run executes chromedp actions against the tab under a bounded timeout.
func (p *Page) run(timeout time.Duration, actions ...chromedp.Action) error {
	if p.closed.Load() {
		return fmt.Errorf("page is closed")
	}
	if timeout <= 0 {
		timeout = p.cfg.ActionTimeout
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.cfg.NavigationTimeout
	}
	p.logger.Debug("Navigating", zap.String("url", url))
	return p.run(timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(0, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	var content string
	err := p.run(0, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		content, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

func (p *Page) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	return p.run(timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (p *Page) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// Press sends a named key (e.g. "Enter") to the element at selector.
func (p *Page) Press(ctx context.Context, selector, key string) error {
	keys := key
	switch key {
	case "Enter":
		keys = kb.Enter
	case "Tab":
		keys = kb.Tab
	case "Escape":
		keys = kb.Escape
	}
	return p.run(0, chromedp.SendKeys(selector, keys, chromedp.ByQuery))
}

func (p *Page) Focus(ctx context.Context, selector string) error {
	return p.run(0, chromedp.Focus(selector, chromedp.ByQuery))
}

// WaitForLoad blocks until the document body is ready or the timeout elapses.
func (p *Page) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	return p.run(timeout, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *Page) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	var out []schemas.Cookie
	err := p.run(0, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		out = make([]schemas.Cookie, 0, len(cookies))
		for _, c := range cookies {
			out = append(out, schemas.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture cookies: %w", err)
	}
	return out, nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(0, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// Close releases the tab. Safe to call more than once.
func (p *Page) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.cancel()
	return nil
}

func (p *Page) IsClosed() bool {
	return p.closed.Load()
}

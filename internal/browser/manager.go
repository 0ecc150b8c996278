// internal/browser/manager.go

// Package browser implements the browser capability on top of chromedp. A
// single shared Chrome process is started lazily; each page gets its own
// chromedp context (tab) so concurrent tasks stay isolated.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/config"
)

// Manager owns the shared browser engine and implements schemas.BrowserDriver.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	startOnce sync.Once
	startErr  error

	allocCtx    context.Context
	allocCancel context.CancelFunc
	// browserCtx is the engine's root tab; new pages branch off it so they
	// share the one Chrome process.
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewManager creates the manager without starting the engine. The engine
// launches on the first NewPage call.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}
}

// start launches the shared Chrome process exactly once.
func (m *Manager) start() error {
	m.startOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		for _, arg := range m.cfg.Args {
			opts = append(opts, chromedp.Flag(arg, true))
		}

		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx,
			chromedp.WithLogf(func(format string, args ...any) {
				m.logger.Debug(fmt.Sprintf(format, args...))
			}),
		)

		if err := chromedp.Run(m.browserCtx); err != nil {
			m.browserCancel()
			m.allocCancel()
			m.startErr = fmt.Errorf("failed to start browser engine: %w", err)
			return
		}

		m.logger.Info("Browser engine started", zap.Bool("headless", m.cfg.Headless))
	})
	return m.startErr
}

// NewPage opens a fresh tab on the shared engine.
func (m *Manager) NewPage(ctx context.Context) (schemas.PageHandle, error) {
	if err := m.start(); err != nil {
		return nil, err
	}

	pageCtx, pageCancel := chromedp.NewContext(m.browserCtx)
	// Materialize the tab now so a dead engine surfaces here, not mid-task.
	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return newPage(pageCtx, pageCancel, m.cfg, m.logger), nil
}

// Close tears down the engine. Pages opened from it become unusable.
func (m *Manager) Close() {
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.logger.Info("Browser engine stopped")
}

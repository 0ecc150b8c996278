// internal/server/helper_test.go
package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/browser"
	"github.com/xkilldash9x/agentseek/internal/config"
	"github.com/xkilldash9x/agentseek/internal/conversation"
	"github.com/xkilldash9x/agentseek/internal/dispatch"
	"github.com/xkilldash9x/agentseek/internal/gitops"
	"github.com/xkilldash9x/agentseek/internal/planner"
	"github.com/xkilldash9x/agentseek/internal/registry"
	"github.com/xkilldash9x/agentseek/internal/workspace"
)

// fakePage is a scriptable PageHandle.
type fakePage struct {
	title   string
	content string
	url     string
	navErr  error
	closed  bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}
func (p *fakePage) Title(context.Context) (string, error)      { return p.title, nil }
func (p *fakePage) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }
func (p *fakePage) Content(context.Context) (string, error)    { return p.content, nil }
func (p *fakePage) Fill(context.Context, string, string, time.Duration) error {
	return nil
}
func (p *fakePage) Click(context.Context, string, time.Duration) error { return nil }
func (p *fakePage) Press(context.Context, string, string) error        { return nil }
func (p *fakePage) Focus(context.Context, string) error                { return nil }
func (p *fakePage) WaitForLoad(context.Context, time.Duration) error   { return nil }
func (p *fakePage) Cookies(context.Context) ([]schemas.Cookie, error) {
	return []schemas.Cookie{{Name: "session", Value: "abc"}}, nil
}
func (p *fakePage) CurrentURL(context.Context) (string, error) { return p.url, nil }
func (p *fakePage) Close() error                               { p.closed = true; return nil }
func (p *fakePage) IsClosed() bool                             { return p.closed }

// fakeDriver hands out fresh fakePages, or fails when broken.
type fakeDriver struct {
	title   string
	content string
	broken  bool
	pages   []*fakePage
}

func (d *fakeDriver) NewPage(context.Context) (schemas.PageHandle, error) {
	if d.broken {
		return nil, errors.New("browser engine unavailable")
	}
	page := &fakePage{title: d.title, content: d.content}
	d.pages = append(d.pages, page)
	return page, nil
}

// fakeRunner returns a fixed result for every run.
type fakeRunner struct {
	result *schemas.RunResult
	err    error
	code   string
	lang   string
}

func (r *fakeRunner) Run(_ context.Context, code, language string, _ time.Duration) (*schemas.RunResult, error) {
	r.code, r.lang = code, language
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

// scriptedProvider plays back queued completions in order.
type scriptedProvider struct {
	replies []string
	err     error
}

func (p *scriptedProvider) next() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

func (p *scriptedProvider) Complete(context.Context, string, string) (string, error) {
	return p.next()
}

func (p *scriptedProvider) CompleteMessages(context.Context, []schemas.ChatMessage) (string, error) {
	return p.next()
}

// testEnv bundles the handler under test with its scriptable collaborators.
type testEnv struct {
	handlers *Handlers
	driver   *fakeDriver
	runner   *fakeRunner
	provider *scriptedProvider
	registry *registry.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := config.NewDefaultConfig()
	cfg.WorkspaceCfg.Root = t.TempDir()
	cfg.AgentCfg.StepDelay = 2 * time.Millisecond

	ws, err := workspace.New(cfg.Workspace().Root, logger)
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}

	driver := &fakeDriver{title: "Example", content: "<html>hello</html>"}
	codeRunner := &fakeRunner{result: &schemas.RunResult{Stdout: "ok\n"}}
	provider := &scriptedProvider{}
	reg := registry.New(cfg.Agent().StepDelay, logger)
	t.Cleanup(reg.Close)

	handlers := NewHandlers(Deps{
		Cfg:        cfg,
		Logger:     logger,
		Planner:    planner.New(provider, logger),
		Dispatcher: dispatch.New(driver, codeRunner, *cfg, logger),
		Driver:     driver,
		Sessions:   browser.NewSessionRegistry(driver, logger),
		Runner:     codeRunner,
		Workspace:  ws,
		GitHub:     gitops.NewService("", logger),
		Chat:       conversation.NewStore(provider, logger),
		Registry:   reg,
	})

	return &testEnv{
		handlers: handlers,
		driver:   driver,
		runner:   codeRunner,
		provider: provider,
		registry: reg,
	}
}

// internal/dispatch/dispatcher.go

// Package dispatch routes free-text plan tasks to the matching executor:
// browser automation, code execution, file acknowledgement, or skip.
package dispatch

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/classifier"
	"github.com/xkilldash9x/agentseek/internal/config"
	"github.com/xkilldash9x/agentseek/internal/llmutil"
)

var (
	urlRegex = regexp.MustCompile(`https?://[^\s]+`)
	// searchQueryRegex pulls the quoted or bare query out of "search for X".
	searchQueryRegex = regexp.MustCompile(`(?i)search(?:\s+for)?\s+['"]?([^'"]+)['"]?`)
)

// Dispatcher executes individual plan tasks against the capability ports.
type Dispatcher struct {
	driver schemas.BrowserDriver
	runner schemas.CodeRunner
	cfg    config.Config
	logger *zap.Logger
}

// New creates a dispatcher.
func New(driver schemas.BrowserDriver, runner schemas.CodeRunner, cfg config.Config, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		driver: driver,
		runner: runner,
		cfg:    cfg,
		logger: logger.Named("dispatch"),
	}
}

// Dispatch executes one task. It never returns an error; faults are reported
// inside the outcome so a plan run can continue past a failed step.
func (d *Dispatcher) Dispatch(ctx context.Context, task string, ec *Context) *schemas.TaskOutcome {
	// Search-intent override: preferred over generic dispatch when the text
	// matches a search pattern and a prior step left a live page behind.
	if outcome := d.trySearchOverride(ctx, task, ec); outcome != nil {
		return outcome
	}

	switch classifier.Classify(task) {
	case classifier.KindBrowse:
		return d.dispatchBrowse(ctx, task)
	case classifier.KindCode:
		return d.dispatchCode(ctx, task)
	case classifier.KindFile:
		// File I/O is served by the direct /files endpoint; the plan path
		// just acknowledges the step.
		return &schemas.TaskOutcome{
			Status:  schemas.OutcomeSuccess,
			Task:    task,
			Message: "File operation completed",
		}
	default:
		return &schemas.TaskOutcome{Status: schemas.OutcomeSkipped, Task: task}
	}
}

// trySearchOverride returns a non-nil outcome only when the override fully
// succeeded. Any fault abandons the override silently and generic dispatch
// takes over.
func (d *Dispatcher) trySearchOverride(ctx context.Context, task string, ec *Context) *schemas.TaskOutcome {
	if !strings.Contains(strings.ToLower(task), "search") {
		return nil
	}
	if ec == nil || ec.Page == nil || ec.Page.IsClosed() {
		return nil
	}
	match := searchQueryRegex.FindStringSubmatch(task)
	if match == nil {
		return nil
	}
	query := strings.TrimSpace(match[1])

	result := TrySearch(ctx, ec.Page, query, d.logger)
	if !result.Success {
		d.logger.Debug("Search override failed, falling through to generic dispatch",
			zap.String("task", task))
		return nil
	}

	return &schemas.TaskOutcome{
		Status:  schemas.OutcomeSuccess,
		Task:    task,
		Type:    "search",
		Query:   query,
		Method:  result.MethodUsed,
		Details: &result,
	}
}

func (d *Dispatcher) dispatchBrowse(ctx context.Context, task string) *schemas.TaskOutcome {
	page, err := d.driver.NewPage(ctx)
	if err != nil {
		return &schemas.TaskOutcome{Status: schemas.OutcomeError, Task: task, Error: err.Error()}
	}
	// The page is released regardless of outcome; sessions that must outlive
	// a request go through the session registry instead.
	defer func() {
		if !page.IsClosed() {
			_ = page.Close()
		}
	}()

	url := d.cfg.Browser().DefaultURL
	if url == "" {
		url = "https://www.google.com"
	}
	if found := urlRegex.FindString(task); found != "" {
		url = found
	}

	if err := page.Navigate(ctx, url, d.cfg.Browser().NavigationTimeout); err != nil {
		return &schemas.TaskOutcome{Status: schemas.OutcomeError, Task: task, Error: err.Error()}
	}

	title, err := page.Title(ctx)
	if err != nil {
		return &schemas.TaskOutcome{Status: schemas.OutcomeError, Task: task, Error: err.Error()}
	}
	screenshot, err := page.Screenshot(ctx)
	if err != nil {
		return &schemas.TaskOutcome{Status: schemas.OutcomeError, Task: task, Error: err.Error()}
	}

	d.logger.Info("Browse task completed", zap.String("url", url), zap.String("title", title))
	return &schemas.TaskOutcome{
		Status:     schemas.OutcomeSuccess,
		Task:       task,
		Title:      title,
		URL:        url,
		Screenshot: base64.StdEncoding.EncodeToString(screenshot),
	}
}

func (d *Dispatcher) dispatchCode(ctx context.Context, task string) *schemas.TaskOutcome {
	code := llmutil.CleanCodeOutput(classifier.ExtractCode(task))

	timeout := d.cfg.Runner().TaskTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	result, err := d.runner.Run(ctx, code, "python", timeout)
	if err != nil {
		return &schemas.TaskOutcome{Status: schemas.OutcomeError, Task: task, Error: err.Error()}
	}
	if result.TimedOut {
		return &schemas.TaskOutcome{Status: schemas.OutcomeError, Task: task, Error: "code execution timed out"}
	}

	rc := result.ExitCode
	return &schemas.TaskOutcome{
		Status:     schemas.OutcomeSuccess,
		Task:       task,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ReturnCode: &rc,
	}
}

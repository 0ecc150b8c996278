// internal/planner/planner.go

// Package planner turns a free-text instruction into an ordered list of task
// strings via the completion provider, and summarizes run results afterwards.
package planner

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/llmutil"
)

const planSystemPrompt = `You are an autonomous AI agent. Your task is to break down user requests into executable steps.

Available capabilities:
- Browser automation (visit websites, take screenshots, interact with pages)
- Python code execution
- File operations (read, write, delete files)
- GitHub integration (create issues, push code)

Return a JSON array of tasks to execute. Example:
["visit https://www.google.com and take a screenshot", "execute python code: print('Hello World')"]`

// Planner generates and summarizes plans.
type Planner struct {
	provider schemas.CompletionProvider
	logger   *zap.Logger
}

// New creates a planner.
func New(provider schemas.CompletionProvider, logger *zap.Logger) *Planner {
	return &Planner{provider: provider, logger: logger.Named("planner")}
}

// Generate produces an ordered task list for the prompt. It is total: any
// provider or parse fault degrades to a single-task plan containing the
// prompt verbatim, never an error.
func (p *Planner) Generate(ctx context.Context, prompt string) []string {
	response, err := p.provider.Complete(ctx, prompt, planSystemPrompt)
	if err != nil {
		p.logger.Warn("Plan generation fell back to verbatim prompt", zap.Error(err))
		return []string{prompt}
	}

	plan, err := llmutil.ParseJSONResponse[[]string](response)
	if err != nil || plan == nil || len(*plan) == 0 {
		p.logger.Warn("Plan response was not a parseable task list",
			zap.String("response", llmutil.TruncateString(response, 200)))
		return []string{prompt}
	}

	p.logger.Info("Plan generated", zap.Int("tasks", len(*plan)))
	return *plan
}

// Summarize asks the provider for a short narrative of what happened. The raw
// response is returned unparsed; a provider fault yields a fixed degraded
// summary rather than an error.
func (p *Planner) Summarize(ctx context.Context, plan []string, results []*schemas.TaskOutcome) string {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		resultsJSON = []byte("[]")
	}

	prompt := fmt.Sprintf(`Summarize the execution of these tasks:
Tasks: %v
Results: %s

Provide a brief summary of what was accomplished.`, plan, resultsJSON)

	summary, err := p.provider.Complete(ctx, prompt, "")
	if err != nil {
		p.logger.Warn("Summary generation failed", zap.Error(err))
		return "Summary unavailable: the completion provider could not be reached."
	}
	return summary
}

// internal/dispatch/context.go
package dispatch

import "github.com/xkilldash9x/agentseek/api/schemas"

// Context accumulates results across one plan run. It is owned exclusively by
// the dispatch loop for the duration of the run and discarded afterwards.
type Context struct {
	// Page is a live page handle carried between steps, when one exists. The
	// search-intent override only fires if a prior step left a page here.
	Page schemas.PageHandle
	// Results maps step keys ("task_0", "task_1", ...) to prior outcomes.
	Results map[string]*schemas.TaskOutcome
}

// NewContext creates an empty per-run context.
func NewContext() *Context {
	return &Context{Results: make(map[string]*schemas.TaskOutcome)}
}

// Record stores a successful step outcome under its positional key.
func (c *Context) Record(key string, outcome *schemas.TaskOutcome) {
	c.Results[key] = outcome
}

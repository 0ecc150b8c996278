// internal/registry/progression.go
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// progressionPhase is one simulated work phase of an execution.
type progressionPhase struct {
	ActionType  string
	Description string
	Thought     string
	ThoughtType schemas.ThoughtType
	Result      string
}

// progressionPhases run strictly in order; each phase fully completes its
// append-start-wait-complete sequence before the next begins.
var progressionPhases = []progressionPhase{
	{
		ActionType:  "planning",
		Description: "Breaking the task into executable steps",
		Thought:     "Analyzing the request and drafting a plan",
		ThoughtType: schemas.ThoughtPlanning,
		Result:      "Plan drafted",
	},
	{
		ActionType:  "search",
		Description: "Searching for relevant information",
		Thought:     "Looking up supporting information",
		ThoughtType: schemas.ThoughtAnalysis,
		Result:      "Search completed",
	},
	{
		ActionType:  "analysis",
		Description: "Analyzing gathered information",
		Thought:     "Evaluating findings against the task",
		ThoughtType: schemas.ThoughtAnalysis,
		Result:      "Analysis completed",
	},
	{
		ActionType:  "decision",
		Description: "Selecting the best course of action",
		Thought:     "Choosing the most promising approach",
		ThoughtType: schemas.ThoughtDecision,
		Result:      "Approach selected",
	},
	{
		ActionType:  "browse",
		Description: "Interacting with web resources",
		Thought:     "Visiting pages relevant to the task",
		ThoughtType: schemas.ThoughtObservation,
		Result:      "Browsing completed",
	},
	{
		ActionType:  "code",
		Description: "Executing generated code",
		Thought:     "Running code to produce the result",
		ThoughtType: schemas.ThoughtObservation,
		Result:      "Code executed successfully",
	},
}

// runProgression simulates an execution's lifecycle against the registry's
// mutation surface. ErrNotFound from any mutator means the execution was
// deleted mid-flight; the progression stops without complaint.
func (r *Registry) runProgression(ctx context.Context, id string) {
	for _, phase := range progressionPhases {
		if _, err := r.AddThought(id, phase.Thought, phase.ThoughtType); err != nil {
			r.abandonProgression(id, err)
			return
		}
		actionID, err := r.AddAction(id, phase.ActionType, phase.Description)
		if err != nil {
			r.abandonProgression(id, err)
			return
		}
		if err := r.StartAction(id, actionID); err != nil {
			r.abandonProgression(id, err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.stepDelay):
		}

		if err := r.CompleteAction(id, actionID, phase.Result, ""); err != nil {
			r.abandonProgression(id, err)
			return
		}
		if err := r.AddLog(id, fmt.Sprintf("Completed phase: %s", phase.ActionType)); err != nil {
			r.abandonProgression(id, err)
			return
		}
	}

	if err := r.CompleteExecution(id, "All phases completed successfully"); err != nil {
		r.abandonProgression(id, err)
	}
}

func (r *Registry) abandonProgression(id string, err error) {
	if errors.Is(err, ErrNotFound) {
		r.logger.Debug("Progression stopped: execution deleted", zap.String("execution_id", id))
		return
	}
	r.logger.Warn("Progression aborted", zap.String("execution_id", id), zap.Error(err))
}

// demoStepNames are the phases of the demonstration progress task.
var demoStepNames = []string{"Initialize", "Fetch Data", "Process", "Generate Report"}

// StartDemoTask creates a demonstration progress task and advances it in the
// background so polling clients can watch it move. Returns the task id
// immediately.
func (r *Registry) StartDemoTask() string {
	id := r.CreateTask("Demo Progress Task", demoStepNames)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runDemoProgress(r.rootCtx, id)
	}()
	return id
}

// runDemoProgress walks each demo step from 0 to 100 percent in increments.
func (r *Registry) runDemoProgress(ctx context.Context, id string) {
	if err := r.StartTask(id); err != nil {
		r.abandonProgression(id, err)
		return
	}

	task, err := r.GetTask(id)
	if err != nil {
		r.abandonProgression(id, err)
		return
	}

	for _, step := range task.Steps {
		for pct := 25.0; pct <= 100; pct += 25 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.stepDelay / 2):
			}

			update := schemas.StepUpdate{Progress: &pct}
			if pct >= 100 {
				completed := schemas.ProgressCompleted
				update.Status = &completed
				msg := fmt.Sprintf("%s finished", step.Name)
				update.Message = &msg
			}

			if err := r.UpdateStep(id, step.ID, update); err != nil {
				r.abandonProgression(id, err)
				return
			}
		}
	}
}

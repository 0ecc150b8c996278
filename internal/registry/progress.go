// internal/registry/progress.go
package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// CreateTask builds a TaskProgress with one pending step per name, in order.
func (r *Registry) CreateTask(name string, stepNames []string) string {
	id := uuid.New().String()
	now := time.Now()

	steps := make([]schemas.ProgressStep, 0, len(stepNames))
	for _, stepName := range stepNames {
		steps = append(steps, schemas.ProgressStep{
			ID:     uuid.New().String(),
			Name:   stepName,
			Status: schemas.ProgressPending,
		})
	}

	task := &schemas.TaskProgress{
		TaskID:    id,
		Name:      name,
		Status:    schemas.ProgressPending,
		Steps:     steps,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.tasks[id] = task
	r.mu.Unlock()

	r.logger.Info("Progress task created",
		zap.String("task_id", id), zap.String("name", name), zap.Int("steps", len(steps)))
	return id
}

// StartTask transitions the task and its first step to in_progress.
func (r *Registry) StartTask(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	now := time.Now()
	task.Status = schemas.ProgressInProgress
	task.UpdatedAt = now
	if len(task.Steps) > 0 {
		task.Steps[0].Status = schemas.ProgressInProgress
		task.Steps[0].StartedAt = &now
		task.CurrentStep = 0
	}
	return nil
}

// UpdateStep applies a partial update to one step, recomputes the aggregate
// progress and task status, and auto-advances the next step when this one
// just completed. Re-sending a terminal status is idempotent: it neither
// re-triggers the auto-advance nor changes the aggregate. A status outside
// the known set is rejected with ErrInvalid before anything is touched.
func (r *Registry) UpdateStep(id, stepID string, update schemas.StepUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	if update.Status != nil {
		switch *update.Status {
		case schemas.ProgressPending, schemas.ProgressInProgress, schemas.ProgressCompleted, schemas.ProgressFailed:
		default:
			return fmt.Errorf("step status %q: %w", *update.Status, ErrInvalid)
		}
	}

	stepIdx := -1
	for i := range task.Steps {
		if task.Steps[i].ID == stepID {
			stepIdx = i
			break
		}
	}
	if stepIdx == -1 {
		return fmt.Errorf("step %s: %w", stepID, ErrNotFound)
	}

	now := time.Now()
	step := &task.Steps[stepIdx]
	prevStatus := step.Status

	if update.Status != nil && *update.Status != prevStatus {
		step.Status = *update.Status
		switch *update.Status {
		case schemas.ProgressInProgress:
			step.StartedAt = &now
		case schemas.ProgressCompleted, schemas.ProgressFailed:
			step.CompletedAt = &now
		}
	}
	if update.Progress != nil {
		step.Progress = clampProgress(*update.Progress)
	}
	if update.Message != nil {
		step.Message = *update.Message
	}

	// A completed step pegs its own progress.
	if step.Status == schemas.ProgressCompleted && update.Progress == nil {
		step.Progress = 100
	}

	if step.Status == schemas.ProgressInProgress {
		task.CurrentStep = stepIdx
	}

	// Auto-advance fires only on the pending/in_progress -> completed edge.
	completedNow := step.Status == schemas.ProgressCompleted && prevStatus != schemas.ProgressCompleted
	if completedNow && stepIdx < len(task.Steps)-1 {
		next := &task.Steps[stepIdx+1]
		if next.Status == schemas.ProgressPending {
			next.Status = schemas.ProgressInProgress
			next.StartedAt = &now
		}
		task.CurrentStep = stepIdx + 1
	}

	recomputeTask(task, now)
	return nil
}

// GetTask returns a snapshot of the task.
func (r *Registry) GetTask(id string) (schemas.TaskProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return schemas.TaskProgress{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return copyTask(task), nil
}

// ListTasks returns snapshots of all tasks.
func (r *Registry) ListTasks() []schemas.TaskProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schemas.TaskProgress, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, copyTask(task))
	}
	return out
}

// DeleteTask removes the entry.
func (r *Registry) DeleteTask(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	delete(r.tasks, id)
	r.logger.Info("Progress task deleted", zap.String("task_id", id))
	return nil
}

// FailTask marks the task failed with an error message.
func (r *Registry) FailTask(id, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	task.Status = schemas.ProgressFailed
	task.Error = errMsg
	task.UpdatedAt = now
	task.CompletedAt = &now
	return nil
}

// recomputeTask refreshes overall_progress (arithmetic mean of step progress)
// and the task-level status from the step aggregate. Caller holds the lock.
func recomputeTask(task *schemas.TaskProgress, now time.Time) {
	if len(task.Steps) > 0 {
		var sum float64
		for i := range task.Steps {
			sum += task.Steps[i].Progress
		}
		task.OverallProgress = sum / float64(len(task.Steps))
	}

	allCompleted := len(task.Steps) > 0
	anyFailed := false
	for i := range task.Steps {
		if task.Steps[i].Status != schemas.ProgressCompleted {
			allCompleted = false
		}
		if task.Steps[i].Status == schemas.ProgressFailed {
			anyFailed = true
		}
	}

	switch {
	case allCompleted:
		if task.Status != schemas.ProgressCompleted {
			task.Status = schemas.ProgressCompleted
			task.CompletedAt = &now
		}
	case anyFailed:
		if task.Status != schemas.ProgressFailed {
			task.Status = schemas.ProgressFailed
			task.CompletedAt = &now
		}
	}
	task.UpdatedAt = now
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func copyTask(task *schemas.TaskProgress) schemas.TaskProgress {
	out := *task
	out.Steps = append([]schemas.ProgressStep(nil), task.Steps...)
	return out
}

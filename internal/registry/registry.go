// internal/registry/registry.go

// Package registry owns the in-memory state machines for agent executions and
// progress tasks. All entries live for the process lifetime unless explicitly
// deleted; there is no eviction. A single lock serializes every mutation, so
// concurrent updates to the same entry are sequenced rather than racing.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// ErrNotFound is returned for lookups and mutations on unknown ids. Background
// progressions treat it as a signal that their entry was deleted mid-flight
// and stop quietly.
var ErrNotFound = errors.New("not found")

// ErrInvalid is returned when a mutation carries a value outside its enum,
// such as an unknown status or thought type. The HTTP layer maps it to a
// client error.
var ErrInvalid = errors.New("invalid value")

// Registry is the process-wide store for executions and progress tasks.
type Registry struct {
	mu         sync.RWMutex
	executions map[string]*schemas.AgentExecution
	tasks      map[string]*schemas.TaskProgress

	// rootCtx bounds every background progression; Close cancels it and
	// waits for them to drain.
	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stepDelay time.Duration
	logger    *zap.Logger
}

// New creates an empty registry. stepDelay is the simulated work interval of
// background progressions.
func New(stepDelay time.Duration, logger *zap.Logger) *Registry {
	if stepDelay <= 0 {
		stepDelay = 800 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		executions: make(map[string]*schemas.AgentExecution),
		tasks:      make(map[string]*schemas.TaskProgress),
		rootCtx:    ctx,
		cancel:     cancel,
		stepDelay:  stepDelay,
		logger:     logger.Named("registry"),
	}
}

// Close stops all background progressions and waits for them to exit.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}

// -- Agent executions --

// CreateExecution inserts a running execution seeded with a planning thought
// and a log line, then schedules its background progression. Returns the new
// execution id immediately.
func (r *Registry) CreateExecution(task string) string {
	id := uuid.New().String()
	now := time.Now()

	exec := &schemas.AgentExecution{
		ExecutionID: id,
		Task:        task,
		Status:      schemas.StatusRunning,
		Thoughts: []schemas.AgentThought{{
			ID:          uuid.New().String(),
			Content:     fmt.Sprintf("Starting task: %s", task),
			ThoughtType: schemas.ThoughtPlanning,
			Timestamp:   now,
		}},
		Actions:   []schemas.AgentAction{},
		Logs:      []string{fmt.Sprintf("Execution started for task: %s", task)},
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.executions[id] = exec
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runProgression(r.rootCtx, id)
	}()

	r.logger.Info("Execution created", zap.String("execution_id", id), zap.String("task", task))
	return id
}

// GetExecution returns a snapshot of the execution.
func (r *Registry) GetExecution(id string) (schemas.AgentExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executions[id]
	if !ok {
		return schemas.AgentExecution{}, fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	return copyExecution(exec), nil
}

// ListExecutions returns snapshots of all executions.
func (r *Registry) ListExecutions() []schemas.AgentExecution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schemas.AgentExecution, 0, len(r.executions))
	for _, exec := range r.executions {
		out = append(out, copyExecution(exec))
	}
	return out
}

// DeleteExecution removes the entry. An in-flight progression notices the
// deletion on its next mutation and stops.
func (r *Registry) DeleteExecution(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.executions[id]; !ok {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	delete(r.executions, id)
	r.logger.Info("Execution deleted", zap.String("execution_id", id))
	return nil
}

// AddThought appends a thought and returns its id. The thought type must be
// one of the known values.
func (r *Registry) AddThought(id, content string, thoughtType schemas.ThoughtType) (string, error) {
	switch thoughtType {
	case schemas.ThoughtPlanning, schemas.ThoughtAnalysis, schemas.ThoughtDecision, schemas.ThoughtObservation:
	default:
		return "", fmt.Errorf("thought type %q: %w", thoughtType, ErrInvalid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return "", fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	thoughtID := uuid.New().String()
	exec.Thoughts = append(exec.Thoughts, schemas.AgentThought{
		ID:          thoughtID,
		Content:     content,
		ThoughtType: thoughtType,
		Timestamp:   time.Now(),
	})
	exec.UpdatedAt = time.Now()
	return thoughtID, nil
}

// AddAction appends a pending action and returns its id.
func (r *Registry) AddAction(id, actionType, description string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return "", fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	actionID := uuid.New().String()
	exec.Actions = append(exec.Actions, schemas.AgentAction{
		ID:          actionID,
		ActionType:  actionType,
		Description: description,
		Status:      schemas.StatusPending,
	})
	exec.UpdatedAt = time.Now()
	return actionID, nil
}

// StartAction transitions an action to running and points current_action at it.
func (r *Registry) StartAction(id, actionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	for i := range exec.Actions {
		if exec.Actions[i].ID == actionID {
			now := time.Now()
			exec.Actions[i].Status = schemas.StatusRunning
			exec.Actions[i].StartedAt = &now
			exec.CurrentAction = i
			exec.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("action %s: %w", actionID, ErrNotFound)
}

// CompleteAction finishes an action with a result or error message.
func (r *Registry) CompleteAction(id, actionID, result, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	for i := range exec.Actions {
		if exec.Actions[i].ID == actionID {
			now := time.Now()
			if errMsg != "" {
				exec.Actions[i].Status = schemas.StatusFailed
				exec.Actions[i].Error = errMsg
			} else {
				exec.Actions[i].Status = schemas.StatusCompleted
				exec.Actions[i].Result = result
			}
			exec.Actions[i].CompletedAt = &now
			exec.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("action %s: %w", actionID, ErrNotFound)
}

// AddLog appends a log line.
func (r *Registry) AddLog(id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	exec.Logs = append(exec.Logs, message)
	exec.UpdatedAt = time.Now()
	return nil
}

// CompleteExecution marks the execution finished with a final result.
func (r *Registry) CompleteExecution(id, finalResult string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.executions[id]
	if !ok {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	exec.Status = schemas.StatusCompleted
	exec.FinalResult = finalResult
	exec.CompletedAt = &now
	exec.UpdatedAt = now
	return nil
}

// copyExecution deep-copies the slices so snapshots cannot observe later
// mutations by a progression.
func copyExecution(exec *schemas.AgentExecution) schemas.AgentExecution {
	out := *exec
	out.Thoughts = append([]schemas.AgentThought(nil), exec.Thoughts...)
	out.Actions = append([]schemas.AgentAction(nil), exec.Actions...)
	out.Logs = append([]string(nil), exec.Logs...)
	return out
}

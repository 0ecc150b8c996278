// internal/server/agent.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/dispatch"
	"github.com/xkilldash9x/agentseek/internal/registry"
)

// -- Synchronous agent loop --

type agentRequest struct {
	Prompt   string `json:"prompt"`
	MaxSteps int    `json:"max_steps,omitempty"`
}

type agentResponse struct {
	Plan    []string               `json:"plan"`
	Results []*schemas.TaskOutcome `json:"results"`
	Summary string                 `json:"summary"`
}

// handleAgent runs the full plan-dispatch-summarize loop synchronously. A
// failed step never aborts the run; its outcome is recorded and the loop
// moves on.
func (h *Handlers) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Prompt == "" {
		h.respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = h.Cfg.Agent().MaxSteps
	}

	ctx := r.Context()
	plan := h.Planner.Generate(ctx, req.Prompt)
	h.log.Info("Agent plan generated",
		zap.Int("steps", len(plan)), zap.Int("max_steps", maxSteps))

	ec := dispatch.NewContext()
	defer func() {
		if ec.Page != nil && !ec.Page.IsClosed() {
			_ = ec.Page.Close()
		}
	}()

	steps := plan
	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}

	results := make([]*schemas.TaskOutcome, 0, len(steps))
	for i, task := range steps {
		outcome := h.Dispatcher.Dispatch(ctx, task, ec)
		results = append(results, outcome)
		if outcome.Status == schemas.OutcomeSuccess {
			ec.Record(fmt.Sprintf("task_%d", i), outcome)
		}
	}

	summary := h.Planner.Summarize(ctx, plan, results)

	h.respondJSON(w, http.StatusOK, agentResponse{
		Plan:    plan,
		Results: results,
		Summary: summary,
	})
}

// -- Tracked executions --

type startExecutionRequest struct {
	Task string `json:"task"`
}

func (h *Handlers) handleStartExecution(w http.ResponseWriter, r *http.Request) {
	var req startExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Task == "" {
		h.respondError(w, http.StatusBadRequest, "task is required")
		return
	}

	id := h.Registry.CreateExecution(req.Task)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"execution_id": id,
		"status":       "started",
	})
}

func (h *Handlers) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	executions := h.Registry.ListExecutions()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"executions": executions,
		"count":      len(executions),
	})
}

func (h *Handlers) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	execution, err := h.Registry.GetExecution(id)
	if err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, execution)
}

func (h *Handlers) handleDeleteExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	if err := h.Registry.DeleteExecution(id); err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Execution deleted: %s", id),
	})
}

type addThoughtRequest struct {
	Content     string              `json:"content"`
	ThoughtType schemas.ThoughtType `json:"thought_type"`
}

func (h *Handlers) handleAddThought(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	var req addThoughtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ThoughtType == "" {
		req.ThoughtType = schemas.ThoughtObservation
	}

	thoughtID, err := h.Registry.AddThought(id, req.Content, req.ThoughtType)
	if err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"thought_id": thoughtID})
}

type addActionRequest struct {
	ActionType  string `json:"action_type"`
	Description string `json:"description"`
}

func (h *Handlers) handleAddAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	var req addActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	actionID, err := h.Registry.AddAction(id, req.ActionType, req.Description)
	if err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"action_id": actionID})
}

type addLogRequest struct {
	Message string `json:"message"`
}

func (h *Handlers) handleAddLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	var req addLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := h.Registry.AddLog(id, req.Message); err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// -- Progress tasks --

type createProgressTaskRequest struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

func (h *Handlers) handleCreateProgressTask(w http.ResponseWriter, r *http.Request) {
	var req createProgressTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Name == "" || len(req.Steps) == 0 {
		h.respondError(w, http.StatusBadRequest, "name and at least one step are required")
		return
	}

	id := h.Registry.CreateTask(req.Name, req.Steps)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"task_id": id,
		"status":  "created",
	})
}

func (h *Handlers) handleProgressDemo(w http.ResponseWriter, r *http.Request) {
	id := h.Registry.StartDemoTask()
	h.respondJSON(w, http.StatusOK, map[string]string{
		"task_id": id,
		"status":  "started",
	})
}

func (h *Handlers) handleListProgressTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.Registry.ListTasks()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func (h *Handlers) handleGetProgressTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	task, err := h.Registry.GetTask(id)
	if err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, task)
}

func (h *Handlers) handleDeleteProgressTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := h.Registry.DeleteTask(id); err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Task deleted: %s", id),
	})
}

func (h *Handlers) handleStartProgressTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := h.Registry.StartTask(id); err != nil {
		h.respondRegistryError(w, id, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"task_id": id,
		"status":  "started",
	})
}

func (h *Handlers) handleUpdateProgressStep(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	stepID := chi.URLParam(r, "stepID")

	var update schemas.StepUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := h.Registry.UpdateStep(taskID, stepID, update); err != nil {
		h.respondRegistryError(w, taskID, err)
		return
	}

	task, err := h.Registry.GetTask(taskID)
	if err != nil {
		h.respondRegistryError(w, taskID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, task)
}

func (h *Handlers) respondRegistryError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Not found: %s", id))
		return
	}
	if errors.Is(err, registry.ErrInvalid) {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("Registry operation failed", zap.String("id", id), zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, err.Error())
}

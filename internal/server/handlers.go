// internal/server/handlers.go
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/browser"
	"github.com/xkilldash9x/agentseek/internal/config"
	"github.com/xkilldash9x/agentseek/internal/conversation"
	"github.com/xkilldash9x/agentseek/internal/dispatch"
	"github.com/xkilldash9x/agentseek/internal/gitops"
	"github.com/xkilldash9x/agentseek/internal/llmutil"
	"github.com/xkilldash9x/agentseek/internal/planner"
	"github.com/xkilldash9x/agentseek/internal/registry"
	"github.com/xkilldash9x/agentseek/internal/workspace"
)

const apiVersion = "1.0.0"

// contentPreviewLimit caps how much page HTML a browse response carries.
const contentPreviewLimit = 1000

// Deps bundles everything the HTTP handlers call into.
type Deps struct {
	Cfg        config.Interface
	Logger     *zap.Logger
	Planner    *planner.Planner
	Dispatcher *dispatch.Dispatcher
	Driver     schemas.BrowserDriver
	Sessions   *browser.SessionRegistry
	Runner     schemas.CodeRunner
	Workspace  *workspace.Workspace
	GitHub     *gitops.Service
	Chat       *conversation.Store
	Registry   *registry.Registry
}

// Handlers serves every route of the API.
type Handlers struct {
	Deps
	log *zap.Logger
}

func NewHandlers(deps Deps) *Handlers {
	return &Handlers{Deps: deps, log: deps.Logger.Named("handlers")}
}

// RegisterRoutes attaches all API routes to the router.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)

	r.Post("/agent", h.handleAgent)

	r.Post("/browse", h.handleBrowse)
	r.Post("/browse/login", h.handleBrowserLogin)
	r.Get("/browse/sessions", h.handleListBrowserSessions)
	r.Get("/browse/session/{sessionID}", h.handleGetBrowserSession)
	r.Delete("/browse/session/{sessionID}", h.handleDeleteBrowserSession)

	r.Post("/execute/python", h.handleExecute("python"))
	r.Post("/execute/javascript", h.handleExecute("javascript"))

	r.Post("/files", h.handleFiles)
	r.Post("/github", h.handleGitHub)
	r.Post("/upload", h.handleUpload)

	r.Post("/chat/message", h.handleChatMessage)
	r.Get("/chat/sessions", h.handleListChatSessions)
	r.Get("/chat/session/{sessionID}", h.handleGetChatSession)
	r.Delete("/chat/session/{sessionID}", h.handleDeleteChatSession)

	r.Post("/agent/execute", h.handleStartExecution)
	r.Get("/agent/executions", h.handleListExecutions)
	r.Get("/agent/execution/{executionID}", h.handleGetExecution)
	r.Delete("/agent/execution/{executionID}", h.handleDeleteExecution)
	r.Post("/agent/execution/{executionID}/thought", h.handleAddThought)
	r.Post("/agent/execution/{executionID}/action", h.handleAddAction)
	r.Post("/agent/execution/{executionID}/log", h.handleAddLog)

	r.Post("/progress/task", h.handleCreateProgressTask)
	r.Post("/progress/demo", h.handleProgressDemo)
	r.Get("/progress/tasks", h.handleListProgressTasks)
	r.Get("/progress/task/{taskID}", h.handleGetProgressTask)
	r.Delete("/progress/task/{taskID}", h.handleDeleteProgressTask)
	r.Post("/progress/task/{taskID}/start", h.handleStartProgressTask)
	r.Put("/progress/task/{taskID}/step/{stepID}", h.handleUpdateProgressStep)
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"name":    "AgentSeek Backend API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"health":             "GET /health",
			"agent":              "POST /agent",
			"browse":             "POST /browse",
			"browse_login":       "POST /browse/login",
			"browse_sessions":    "GET /browse/sessions",
			"execute_python":     "POST /execute/python",
			"execute_javascript": "POST /execute/javascript",
			"files":              "POST /files",
			"github":             "POST /github",
			"upload":             "POST /upload",
			"chat":               "POST /chat/message",
			"chat_sessions":      "GET /chat/sessions",
			"agent_execute":      "POST /agent/execute",
			"agent_executions":   "GET /agent/executions",
			"progress_tasks":     "GET /progress/tasks",
			"progress_demo":      "POST /progress/demo",
		},
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   apiVersion,
	})
}

// -- Browse --

type browseRequest struct {
	URL string `json:"url"`
}

type browseResponse struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Screenshot string `json:"screenshot,omitempty"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleBrowse opens a fresh page per request. Faults are reported inside the
// response body rather than as HTTP errors so the caller always gets the URL
// it asked about back.
func (h *Handlers) handleBrowse(w http.ResponseWriter, r *http.Request) {
	var req browseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx := r.Context()
	page, err := h.Driver.NewPage(ctx)
	if err != nil {
		h.respondJSON(w, http.StatusOK, browseResponse{Title: "Error", URL: req.URL, Error: err.Error()})
		return
	}
	defer func() {
		if !page.IsClosed() {
			_ = page.Close()
		}
	}()

	if err := page.Navigate(ctx, req.URL, h.Cfg.Browser().NavigationTimeout); err != nil {
		h.respondJSON(w, http.StatusOK, browseResponse{Title: "Error", URL: req.URL, Error: err.Error()})
		return
	}

	title, err := page.Title(ctx)
	if err != nil {
		h.respondJSON(w, http.StatusOK, browseResponse{Title: "Error", URL: req.URL, Error: err.Error()})
		return
	}
	screenshot, err := page.Screenshot(ctx)
	if err != nil {
		h.respondJSON(w, http.StatusOK, browseResponse{Title: "Error", URL: req.URL, Error: err.Error()})
		return
	}
	content, err := page.Content(ctx)
	if err != nil {
		h.respondJSON(w, http.StatusOK, browseResponse{Title: "Error", URL: req.URL, Error: err.Error()})
		return
	}

	h.respondJSON(w, http.StatusOK, browseResponse{
		Title:      title,
		URL:        req.URL,
		Screenshot: base64.StdEncoding.EncodeToString(screenshot),
		Content:    llmutil.TruncateString(content, contentPreviewLimit),
	})
}

type browserLoginRequest struct {
	URL              string `json:"url"`
	UsernameSelector string `json:"username_selector"`
	PasswordSelector string `json:"password_selector"`
	SubmitSelector   string `json:"submit_selector"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	SessionName      string `json:"session_name,omitempty"`
}

type browserLoginResponse struct {
	Success    bool             `json:"success"`
	SessionID  string           `json:"session_id"`
	CurrentURL string           `json:"current_url"`
	Screenshot string           `json:"screenshot,omitempty"`
	Cookies    []schemas.Cookie `json:"cookies,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (h *Handlers) handleBrowserLogin(w http.ResponseWriter, r *http.Request) {
	var req browserLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.URL == "" || req.UsernameSelector == "" || req.PasswordSelector == "" || req.SubmitSelector == "" {
		h.respondError(w, http.StatusBadRequest, "url and all selectors are required")
		return
	}

	result := h.Sessions.Login(r.Context(), browser.LoginParams{
		URL:              req.URL,
		Username:         req.Username,
		Password:         req.Password,
		UsernameSelector: req.UsernameSelector,
		PasswordSelector: req.PasswordSelector,
		SubmitSelector:   req.SubmitSelector,
		SessionName:      req.SessionName,
	})

	h.respondJSON(w, http.StatusOK, browserLoginResponse{
		Success:    result.Success,
		SessionID:  result.SessionID,
		CurrentURL: result.CurrentURL,
		Screenshot: base64.StdEncoding.EncodeToString(result.Screenshot),
		Cookies:    result.Cookies,
		Error:      result.Error,
	})
}

func (h *Handlers) handleListBrowserSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.Sessions.List()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *Handlers) handleGetBrowserSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	info, ok := h.Sessions.Get(id)
	if !ok {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Session not found: %s", id))
		return
	}
	h.respondJSON(w, http.StatusOK, info)
}

func (h *Handlers) handleDeleteBrowserSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !h.Sessions.Delete(id) {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Session not found: %s", id))
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Session deleted: %s", id),
	})
}

// -- Code execution --

type executeCodeRequest struct {
	Code string `json:"code"`
}

// handleExecute runs submitted code under the direct-endpoint timeout. A
// timeout is reported in-band as returncode -1, matching the runner contract.
func (h *Handlers) handleExecute(language string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
			return
		}

		timeout := h.Cfg.Runner().Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		result, err := h.Runner.Run(r.Context(), req.Code, language, timeout)
		if err != nil {
			h.respondJSON(w, http.StatusOK, schemas.RunResult{
				Stderr:   err.Error(),
				ExitCode: -1,
			})
			return
		}
		if result.TimedOut {
			result.Stderr = "Execution timeout"
		}
		h.respondJSON(w, http.StatusOK, result)
	}
}

// -- Files --

type fileOperationRequest struct {
	Operation string `json:"operation"`
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
}

func (h *Handlers) handleFiles(w http.ResponseWriter, r *http.Request) {
	var req fileOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	switch req.Operation {
	case "read":
		content, err := h.Workspace.Read(req.Path)
		if err != nil {
			h.respondFileError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "success", "content": content})

	case "write":
		if err := h.Workspace.Write(req.Path, req.Content); err != nil {
			h.respondFileError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": fmt.Sprintf("File written: %s", req.Path),
		})

	case "delete":
		if err := h.Workspace.Delete(req.Path); err != nil {
			h.respondFileError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": fmt.Sprintf("File deleted: %s", req.Path),
		})

	case "list":
		files, err := h.Workspace.List(req.Path)
		if err != nil {
			h.respondFileError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]any{"status": "success", "files": files})

	default:
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown operation: %s", req.Operation))
	}
}

func (h *Handlers) respondFileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workspace.ErrOutsideRoot),
		errors.Is(err, workspace.ErrWrongType),
		errors.Is(err, workspace.ErrUnknownOp):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// -- GitHub --

func (h *Handlers) handleGitHub(w http.ResponseWriter, r *http.Request) {
	var req gitops.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.GitHub.Do(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, gitops.ErrNoToken):
			h.respondError(w, http.StatusBadRequest, "GitHub token not configured")
		case errors.Is(err, gitops.ErrUnknownAction):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// -- Upload --

func (h *Handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
		return
	}
	defer file.Close()

	size, relPath, err := h.Workspace.Save(header.Filename, file)
	if err != nil {
		h.respondFileError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"filename": header.Filename,
		"size":     size,
		"path":     relPath,
	})
}

// -- Chat --

type chatRequest struct {
	SessionID        string `json:"session_id,omitempty"`
	Message          string `json:"message"`
	GenerateFollowup *bool  `json:"generate_followup,omitempty"`
}

func (h *Handlers) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Message == "" {
		h.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	// Follow-up generation defaults on, like the original client expects.
	generateFollowup := req.GenerateFollowup == nil || *req.GenerateFollowup

	result, err := h.Chat.Chat(r.Context(), req.SessionID, req.Message, generateFollowup)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Chat error: %v", err))
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleListChatSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.Chat.List()
	summaries := make([]map[string]any, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, map[string]any{
			"session_id":    s.SessionID,
			"message_count": len(s.Messages),
			"created_at":    s.CreatedAt.Format(time.RFC3339),
			"updated_at":    s.UpdatedAt.Format(time.RFC3339),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (h *Handlers) handleGetChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := h.Chat.Get(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Session not found: %s", id))
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

func (h *Handlers) handleDeleteChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.Chat.Delete(id); err != nil {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Session not found: %s", id))
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Session deleted: %s", id),
	})
}

// -- Response helpers --

func (h *Handlers) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]string{"error": message})
}

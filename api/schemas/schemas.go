package schemas

import "time"

// -- Status Enums --

// ExecutionStatus tracks the lifecycle of an agent execution or a single action.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// ProgressStatus tracks the lifecycle of a progress task and its steps.
type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "pending"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// OutcomeStatus is the result classification of a single dispatched task.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// ThoughtType classifies an agent thought for the visualization frontend.
type ThoughtType string

const (
	ThoughtPlanning    ThoughtType = "planning"
	ThoughtAnalysis    ThoughtType = "analysis"
	ThoughtDecision    ThoughtType = "decision"
	ThoughtObservation ThoughtType = "observation"
)

// -- Conversation Schemas --

// ChatMessage is one turn of a conversation, either from the user or the assistant.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSession owns the ordered, append-only message history of one chat.
type ConversationSession struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// -- Agent Execution Schemas --

// AgentThought is a single reasoning entry emitted during an execution.
type AgentThought struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	ThoughtType ThoughtType `json:"thought_type"`
	Timestamp   time.Time   `json:"timestamp"`
}

// AgentAction is one discrete action taken during an execution, with its own
// pending -> running -> completed/failed lifecycle.
type AgentAction struct {
	ID          string          `json:"id"`
	ActionType  string          `json:"action_type"`
	Description string          `json:"description"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      string          `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// AgentExecution is a tracked run of an agent task. Thoughts, actions and logs
// are append-only; CurrentAction indexes into Actions.
type AgentExecution struct {
	ExecutionID   string          `json:"execution_id"`
	Task          string          `json:"task"`
	Status        ExecutionStatus `json:"status"`
	Thoughts      []AgentThought  `json:"thoughts"`
	Actions       []AgentAction   `json:"actions"`
	Logs          []string        `json:"logs"`
	CurrentAction int             `json:"current_action"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FinalResult   string          `json:"final_result,omitempty"`
}

// -- Progress Tracking Schemas --

// ProgressStep is one phase of a tracked multi-step task. Progress runs 0-100.
type ProgressStep struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      ProgressStatus `json:"status"`
	Progress    float64        `json:"progress"`
	Message     string         `json:"message,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// TaskProgress is a tracked multi-phase unit of work. OverallProgress is always
// the arithmetic mean of all step progress values.
type TaskProgress struct {
	TaskID          string         `json:"task_id"`
	Name            string         `json:"name"`
	Status          ProgressStatus `json:"status"`
	Steps           []ProgressStep `json:"steps"`
	CurrentStep     int            `json:"current_step"`
	OverallProgress float64        `json:"overall_progress"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// StepUpdate is a partial update applied to a single progress step. Nil fields
// leave the corresponding step field untouched.
type StepUpdate struct {
	Status   *ProgressStatus `json:"status,omitempty"`
	Progress *float64        `json:"progress,omitempty"`
	Message  *string         `json:"message,omitempty"`
}

// -- Dispatch Schemas --

// TaskOutcome is the structured result of dispatching one planned task.
// Kind-specific fields are populated only for the branch that ran.
type TaskOutcome struct {
	Status OutcomeStatus `json:"status"`
	Task   string        `json:"task"`
	Type   string        `json:"type,omitempty"`
	Error  string        `json:"error,omitempty"`

	// Browse fields.
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	Screenshot string `json:"screenshot,omitempty"` // base64

	// Code fields.
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	ReturnCode *int   `json:"returncode,omitempty"`

	// Search fields.
	Query   string        `json:"query,omitempty"`
	Method  string        `json:"method,omitempty"`
	Details *SearchResult `json:"details,omitempty"`

	// File fields.
	Message string `json:"message,omitempty"`
}

// SearchResult reports the outcome of the ordered search-strategy fallback.
type SearchResult struct {
	Success      bool     `json:"success"`
	MethodUsed   string   `json:"method_used,omitempty"`
	MethodsTried []string `json:"methods_tried"`
	Errors       []string `json:"errors"`
}

// -- Browser Session Schemas --

// Cookie is a captured browser cookie record.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
}

// BrowserSessionInfo is the poll-safe summary of a stored browser session.
// The live page handle is held internally and never serialized.
type BrowserSessionInfo struct {
	SessionID   string    `json:"session_id"`
	URL         string    `json:"url"`
	Cookies     []Cookie  `json:"cookies,omitempty"`
	CookieCount int       `json:"cookie_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// RunResult is the outcome of executing a code fragment. A timeout is a
// distinguishable outcome, not an error.
type RunResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"returncode"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

package schemas

import (
	"context"
	"time"
)

// -- Capability Ports --
//
// The core treats every external system as an opaque capability behind one of
// these interfaces. Concrete implementations live under internal/ and are
// wired in at the composition root.

// CompletionProvider generates text completions from an LLM backend.
// Callers must treat any fault as a degraded response for plan, summary and
// follow-up paths; a provider fault never fails the whole request.
type CompletionProvider interface {
	// Complete sends a single user prompt with an optional system instruction.
	Complete(ctx context.Context, prompt, system string) (string, error)
	// CompleteMessages sends a full role-tagged conversation history.
	CompleteMessages(ctx context.Context, messages []ChatMessage) (string, error)
}

// BrowserDriver creates isolated browser pages on a shared engine. The engine
// is started lazily; concurrent first calls must not race on its creation.
type BrowserDriver interface {
	NewPage(ctx context.Context) (PageHandle, error)
}

// PageHandle drives a single browser tab. Every operation may fail with a
// navigation, timeout or selector-not-found fault.
type PageHandle interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Title(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Content(ctx context.Context) (string, error)
	Fill(ctx context.Context, selector, text string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Press(ctx context.Context, selector, key string) error
	Focus(ctx context.Context, selector string) error
	WaitForLoad(ctx context.Context, timeout time.Duration) error
	Cookies(ctx context.Context) ([]Cookie, error)
	CurrentURL(ctx context.Context) (string, error)
	Close() error
	IsClosed() bool
}

// CodeRunner executes a code fragment in a subprocess under a bounded timeout.
type CodeRunner interface {
	Run(ctx context.Context, code, language string, timeout time.Duration) (*RunResult, error)
}

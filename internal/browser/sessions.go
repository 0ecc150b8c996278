// internal/browser/sessions.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// LoginParams describes an automated form login.
type LoginParams struct {
	URL              string
	Username         string
	Password         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	// SessionName overrides the generated session id when set.
	SessionName string
}

// LoginResult is the outcome of a login attempt. On success the session (and
// its live page) is retained in the registry until explicitly deleted.
type LoginResult struct {
	Success    bool
	SessionID  string
	CurrentURL string
	Screenshot []byte
	Cookies    []schemas.Cookie
	Error      string
}

// session pairs the captured session info with the live page keeping it alive.
type session struct {
	info schemas.BrowserSessionInfo
	page schemas.PageHandle
}

// SessionRegistry holds authenticated browser sessions keyed by id.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session

	driver schemas.BrowserDriver
	logger *zap.Logger
}

// NewSessionRegistry creates an empty registry backed by the given driver.
func NewSessionRegistry(driver schemas.BrowserDriver, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session),
		driver:   driver,
		logger:   logger.Named("browser_sessions"),
	}
}

// Login performs the form login and, on success, stores the session with its
// page still open. Faults are reported in the result, not as an error, so the
// caller can always serialize the outcome; the page is released on any fault.
func (r *SessionRegistry) Login(ctx context.Context, params LoginParams) LoginResult {
	page, err := r.driver.NewPage(ctx)
	if err != nil {
		return LoginResult{Success: false, CurrentURL: params.URL, Error: err.Error()}
	}

	result, err := r.performLogin(ctx, page, params)
	if err != nil {
		_ = page.Close()
		return LoginResult{Success: false, CurrentURL: params.URL, Error: err.Error()}
	}

	sessionID := params.SessionName
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	r.mu.Lock()
	r.sessions[sessionID] = &session{
		info: schemas.BrowserSessionInfo{
			SessionID:   sessionID,
			URL:         result.CurrentURL,
			Cookies:     result.Cookies,
			CookieCount: len(result.Cookies),
			Timestamp:   time.Now(),
		},
		page: page,
	}
	r.mu.Unlock()

	result.Success = true
	result.SessionID = sessionID
	r.logger.Info("Browser login succeeded",
		zap.String("session_id", sessionID),
		zap.String("url", result.CurrentURL),
		zap.Int("cookies", len(result.Cookies)),
	)
	return result
}

func (r *SessionRegistry) performLogin(ctx context.Context, page schemas.PageHandle, params LoginParams) (LoginResult, error) {
	var res LoginResult

	if err := page.Navigate(ctx, params.URL, 30*time.Second); err != nil {
		return res, fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.Fill(ctx, params.UsernameSelector, params.Username, 10*time.Second); err != nil {
		return res, fmt.Errorf("failed to fill username: %w", err)
	}
	if err := page.Fill(ctx, params.PasswordSelector, params.Password, 10*time.Second); err != nil {
		return res, fmt.Errorf("failed to fill password: %w", err)
	}
	if err := page.Click(ctx, params.SubmitSelector, 10*time.Second); err != nil {
		return res, fmt.Errorf("failed to click submit: %w", err)
	}
	if err := page.WaitForLoad(ctx, 30*time.Second); err != nil {
		return res, fmt.Errorf("post-login load failed: %w", err)
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return res, err
	}
	currentURL, err := page.CurrentURL(ctx)
	if err != nil {
		return res, err
	}
	// A screenshot failure is not fatal to the login itself.
	screenshot, err := page.Screenshot(ctx)
	if err != nil {
		r.logger.Warn("Post-login screenshot failed", zap.Error(err))
	}

	res.CurrentURL = currentURL
	res.Cookies = cookies
	res.Screenshot = screenshot
	return res, nil
}

// List returns info for all live sessions.
func (r *SessionRegistry) List() []schemas.BrowserSessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schemas.BrowserSessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.info)
	}
	return out
}

// Get returns a single session's info.
func (r *SessionRegistry) Get(id string) (schemas.BrowserSessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return schemas.BrowserSessionInfo{}, false
	}
	return s.info, true
}

// Delete removes a session and releases its underlying page.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if s.page != nil && !s.page.IsClosed() {
		_ = s.page.Close()
	}
	r.logger.Info("Browser session deleted", zap.String("session_id", id))
	return true
}

// Close releases every session. Called at shutdown.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for id, s := range sessions {
		if s.page != nil && !s.page.IsClosed() {
			_ = s.page.Close()
		}
		r.logger.Debug("Released browser session", zap.String("session_id", id))
	}
}

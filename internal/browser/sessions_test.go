// internal/browser/sessions_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// fakePage is a scriptable PageHandle for driving the registry without Chrome.
type fakePage struct {
	failFill  bool
	failClick bool
	cookies   []schemas.Cookie
	url       string
	closed    bool

	fills  []string
	clicks []string
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.url = url
	return nil
}
func (p *fakePage) Title(ctx context.Context) (string, error) { return "Fake Title", nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte{0x89, 0x50}, nil
}
func (p *fakePage) Content(ctx context.Context) (string, error) { return "<html></html>", nil }
func (p *fakePage) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	if p.failFill {
		return errors.New("no such element")
	}
	p.fills = append(p.fills, selector)
	return nil
}
func (p *fakePage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if p.failClick {
		return errors.New("click failed")
	}
	p.clicks = append(p.clicks, selector)
	return nil
}
func (p *fakePage) Press(ctx context.Context, selector, key string) error { return nil }
func (p *fakePage) Focus(ctx context.Context, selector string) error      { return nil }
func (p *fakePage) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	return nil
}
func (p *fakePage) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	return p.cookies, nil
}
func (p *fakePage) CurrentURL(ctx context.Context) (string, error) { return p.url, nil }
func (p *fakePage) Close() error {
	p.closed = true
	return nil
}
func (p *fakePage) IsClosed() bool { return p.closed }

type fakeDriver struct {
	page    *fakePage
	failNew bool
}

func (d *fakeDriver) NewPage(ctx context.Context) (schemas.PageHandle, error) {
	if d.failNew {
		return nil, errors.New("engine unavailable")
	}
	return d.page, nil
}

func loginParams() LoginParams {
	return LoginParams{
		URL:              "https://example.com/login",
		Username:         "user",
		Password:         "pass",
		UsernameSelector: "#user",
		PasswordSelector: "#pass",
		SubmitSelector:   "#submit",
	}
}

func TestLoginSuccessStoresSession(t *testing.T) {
	page := &fakePage{cookies: []schemas.Cookie{{Name: "sid", Value: "abc"}}}
	reg := NewSessionRegistry(&fakeDriver{page: page}, zap.NewNop())

	res := reg.Login(context.Background(), loginParams())
	require.True(t, res.Success)
	require.NotEmpty(t, res.SessionID)
	assert.Equal(t, "https://example.com/login", res.CurrentURL)
	assert.Len(t, res.Cookies, 1)
	assert.Equal(t, []string{"#user", "#pass"}, page.fills)
	assert.Equal(t, []string{"#submit"}, page.clicks)

	info, ok := reg.Get(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, 1, info.CookieCount)
	assert.False(t, page.closed, "the page must stay alive for the session")
}

func TestLoginUsesSessionName(t *testing.T) {
	reg := NewSessionRegistry(&fakeDriver{page: &fakePage{}}, zap.NewNop())

	params := loginParams()
	params.SessionName = "my-session"
	res := reg.Login(context.Background(), params)
	require.True(t, res.Success)
	assert.Equal(t, "my-session", res.SessionID)
}

func TestLoginFailureReleasesPage(t *testing.T) {
	page := &fakePage{failFill: true}
	reg := NewSessionRegistry(&fakeDriver{page: page}, zap.NewNop())

	res := reg.Login(context.Background(), loginParams())
	assert.False(t, res.Success)
	assert.Empty(t, res.SessionID)
	assert.Contains(t, res.Error, "failed to fill username")
	assert.True(t, page.closed, "a failed login must not leak its page")
	assert.Empty(t, reg.List())
}

func TestLoginEngineFailure(t *testing.T) {
	reg := NewSessionRegistry(&fakeDriver{failNew: true}, zap.NewNop())

	res := reg.Login(context.Background(), loginParams())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "engine unavailable")
}

func TestListAndDelete(t *testing.T) {
	page := &fakePage{}
	reg := NewSessionRegistry(&fakeDriver{page: page}, zap.NewNop())

	res := reg.Login(context.Background(), loginParams())
	require.True(t, res.Success)
	assert.Len(t, reg.List(), 1)

	require.True(t, reg.Delete(res.SessionID))
	assert.True(t, page.closed, "deletion must release the page")
	assert.Empty(t, reg.List())

	assert.False(t, reg.Delete(res.SessionID), "deleting twice reports not found")
	_, ok := reg.Get(res.SessionID)
	assert.False(t, ok)
}

func TestCloseReleasesAllSessions(t *testing.T) {
	pageA := &fakePage{}
	driver := &fakeDriver{page: pageA}
	reg := NewSessionRegistry(driver, zap.NewNop())

	resA := reg.Login(context.Background(), loginParams())
	require.True(t, resA.Success)

	reg.Close()
	assert.True(t, pageA.closed)
	assert.Empty(t, reg.List())
}

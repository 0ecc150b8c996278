// internal/runner/runner_test.go
package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/internal/config"
)

func newTestRunner(t *testing.T) *ExecRunner {
	t.Helper()
	return NewExecRunner(config.RunnerConfig{}, zap.NewNop())
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available in PATH", name)
	}
}

func TestRunPython(t *testing.T) {
	requireBinary(t, "python3")
	r := newTestRunner(t)

	res, err := r.Run(context.Background(), "print(1+1)", "python", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "2\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRunPythonError(t *testing.T) {
	requireBinary(t, "python3")
	r := newTestRunner(t)

	res, err := r.Run(context.Background(), "import sys; sys.exit(3)", "python", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunPythonStderr(t *testing.T) {
	requireBinary(t, "python3")
	r := newTestRunner(t)

	res, err := r.Run(context.Background(), "this is not python", "python", 10*time.Second)
	require.NoError(t, err)
	assert.NotZero(t, res.ExitCode)
	assert.Contains(t, res.Stderr, "SyntaxError")
}

func TestRunJavaScript(t *testing.T) {
	requireBinary(t, "node")
	r := newTestRunner(t)

	res, err := r.Run(context.Background(), "console.log(6*7)", "javascript", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "42\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	requireBinary(t, "python3")
	r := newTestRunner(t)

	res, err := r.Run(context.Background(), "import time; time.sleep(5)", "python", 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.TimedOut, "a deadline overrun must be flagged, not returned as an error")
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunUnsupportedLanguage(t *testing.T) {
	r := newTestRunner(t)

	_, err := r.Run(context.Background(), "puts 1", "ruby", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

// internal/runner/runner.go

// Package runner executes short Python and JavaScript snippets in a
// subprocess with a bounded timeout, capturing output for the caller.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/config"
)

// ExecRunner implements schemas.CodeRunner on top of os/exec.
type ExecRunner struct {
	pythonBin string
	nodeBin   string
	logger    *zap.Logger
}

// NewExecRunner creates a runner using the configured interpreter binaries.
func NewExecRunner(cfg config.RunnerConfig, logger *zap.Logger) *ExecRunner {
	pythonBin := cfg.PythonBin
	if pythonBin == "" {
		pythonBin = "python3"
	}
	nodeBin := cfg.NodeBin
	if nodeBin == "" {
		nodeBin = "node"
	}
	return &ExecRunner{
		pythonBin: pythonBin,
		nodeBin:   nodeBin,
		logger:    logger.Named("runner"),
	}
}

// Run executes the given code under the interpreter for language ("python" or
// "javascript"). A timeout is reported via RunResult.TimedOut rather than an
// error, so callers can distinguish it from a launch failure.
func (r *ExecRunner) Run(ctx context.Context, code, language string, timeout time.Duration) (*schemas.RunResult, error) {
	var bin string
	var args []string
	switch language {
	case "python":
		bin = r.pythonBin
		args = []string{"-c", code}
	case "javascript":
		bin = r.nodeBin
		args = []string{"-e", code}
	default:
		return nil, fmt.Errorf("unsupported language: %q", language)
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &schemas.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warn("Code execution timed out",
			zap.String("language", language),
			zap.Duration("timeout", timeout),
		)
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The interpreter ran and exited non-zero; stderr carries the details.
			result.ExitCode = exitErr.ExitCode()
		} else {
			// The interpreter could not be launched at all.
			return nil, fmt.Errorf("failed to run %s: %w", bin, err)
		}
	}

	r.logger.Debug("Code execution finished",
		zap.String("language", language),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", duration),
	)
	return result, nil
}

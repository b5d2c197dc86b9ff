package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var _ ProcessRunner = (*shellRunner)(nil)

// ProcessRunner runs a command line to completion and returns its output.
type ProcessRunner interface {
	// Run blocks until the command has exited and its stdout is closed. The
	// error is only non-nil when the process could not be started.
	Run(ctx context.Context, command string) ([]string, error)
}

// Config holds configuration for creating a shell runner
type Config struct {
	Log     log.Logger
	WorkDir string        // Working directory; empty inherits the current one
	Timeout time.Duration // Kill the process after this long; 0 disables
	Shell   string        // Shell binary; empty picks the platform shell
}

type shellRunner struct {
	log       log.Logger
	workDir   string
	timeout   time.Duration
	shell     string
	shellFlag string
}

// NewShellRunner creates a runner that executes command lines through the
// platform shell, so redirections such as 2>&1 in the command work.
func NewShellRunner(cfg Config) ProcessRunner {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	shell, flag := unixShell, unixShellFlag
	if runtime.GOOS == "windows" {
		shell, flag = windowsShell, windowsShellFlag
	}
	if cfg.Shell != "" {
		shell = cfg.Shell
	}
	return &shellRunner{
		log:       cfg.Log,
		workDir:   cfg.WorkDir,
		timeout:   cfg.Timeout,
		shell:     shell,
		shellFlag: flag,
	}
}

func (r *shellRunner) Run(ctx context.Context, command string) ([]string, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.shell, r.shellFlag, command)
	cmd.Dir = r.workDir
	cmd.WaitDelay = DefaultWaitDelay

	stdout := newLineBuffer()
	cmd.Stdout = stdout

	r.log.Debug("Running command", "command", command)
	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	runErr := cmd.Wait()
	duration := time.Since(startTime)

	lines := stdout.Lines()
	if runErr != nil {
		exitErr := &exec.ExitError{}
		switch {
		case ctx.Err() != nil:
			r.log.Warn("Command stopped before completion", "command", command, "duration", duration, "err", ctx.Err())
		case errors.As(runErr, &exitErr):
			r.log.Debug("Command exited with non-zero status", "code", exitErr.ExitCode(), "duration", duration)
		default:
			r.log.Warn("Command did not complete cleanly", "command", command, "err", runErr)
		}
	}
	r.log.Debug("Command finished", "lines", len(lines), "bytes", stdout.TotalBytes(), "duration", duration)
	return lines, nil
}

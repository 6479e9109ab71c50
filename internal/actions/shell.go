package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/codx-dev/codx/pkg/schema"
)

const (
	defaultShell         = "/bin/sh"
	defaultMaxOutputSize = 10 * 1024 * 1024 // 10MB
	defaultWaitDelay     = 5 * time.Second
)

// ShellConfig configures how command and package actions spawn processes.
type ShellConfig struct {
	// Shell runs commands as `Shell -c <command>`.
	Shell string
	// Timeout bounds a single command; zero means no limit.
	Timeout       time.Duration
	MaxOutputSize int64
	// AssumeYes skips the confirmation prompt before commands.
	AssumeYes bool
}

func (c ShellConfig) withDefaults() ShellConfig {
	if c.Shell == "" {
		c.Shell = defaultShell
	}
	if c.MaxOutputSize <= 0 {
		c.MaxOutputSize = defaultMaxOutputSize
	}
	return c
}

// CommandResult is the value stored for command and package actions.
type CommandResult struct {
	Code   int    `json:"code"`
	Output string `json:"output"`
}

// ToMap exposes the result to conditions and templates.
func (r CommandResult) ToMap() map[string]any {
	return map[string]any{"code": r.Code, "output": r.Output}
}

// executeCommand interpolates and runs command in the project directory,
// asking for confirmation first when confirm is set.
func (b base) executeCommand(ctx context.Context, command string, confirm bool) (any, error) {
	command = b.interpolate(command)
	dir := b.projectDir()

	if confirm && !b.Shell.AssumeYes {
		b.Console.Info(fmt.Sprintf("Preparing to execute command: %s in %s", command, dir))
		ok, err := b.Prompter.Confirm(ctx, "Are you sure you want to execute this command?", true)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, schema.NewError(schema.ErrCodeCommandCancelled, "Command execution cancelled by user.")
		}
	} else {
		b.Console.Info(fmt.Sprintf("Executing command: %s in %s", command, dir))
	}

	b.Logger.DebugContext(ctx, "run command", "command", command, "dir", dir)
	res, err := runShell(ctx, b.Shell.withDefaults(), command, dir)
	if err != nil {
		details := map[string]any{"command": command}
		if res != nil {
			details["code"] = res.Code
			details["output"] = res.Output
		}
		return nil, schema.NewError(schema.ErrCodeCommandExecution, "Error executing command").
			WithCause(err).
			WithDetails(details)
	}
	return res.ToMap(), nil
}

// runShell runs command through cfg.Shell. A non-zero exit is returned as an
// error together with the captured result.
func runShell(ctx context.Context, cfg ShellConfig, command, dir string) (*CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	execCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, cfg.Shell, "-c", command)
	cmd.Dir = dir
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = defaultWaitDelay

	var out bytes.Buffer
	w := &limitedWriter{w: &out, limit: cfg.MaxOutputSize}
	cmd.Stdout = w
	cmd.Stderr = w

	runErr := cmd.Run()
	res := &CommandResult{Output: out.String()}
	if runErr == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.Code = exitErr.ExitCode()
		if execCtx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("command timed out after %s", cfg.Timeout)
		}
		return res, fmt.Errorf("exit status %d", res.Code)
	}
	return nil, runErr
}

// limitedWriter silently discards bytes beyond the limit. Write always
// reports the full len(p) so the child never blocks on a full pipe.
type limitedWriter struct {
	w       io.Writer
	limit   int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	total := len(p)
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return total, nil
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := lw.w.Write(p)
	lw.written += int64(n)
	if err != nil {
		return total, err
	}
	return total, nil
}

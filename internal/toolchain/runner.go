package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner runs external commands. Run returns an error only when the command
// could not be started or was interrupted; a non-zero exit is reported through
// Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	LookPath(name string) (string, error)
}

// ExitError reports a command that exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdout and Stderr receive a copy of the command output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = tee(&stdout, r.Stdout)
	cmd.Stderr = tee(&stderr, r.Stderr)

	slog.Debug("running command", "command", name, "args", strings.Join(args, " "), "dir", r.Dir)
	err := cmd.Run()
	result := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("%s interrupted: %w", name, ctx.Err())
		}
		return result, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return result, nil
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// Package toolchaintest provides a scripted toolchain.Runner for tests.
package toolchaintest

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/slimbuild/slimbuild/internal/toolchain"
)

// Call records one Run invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what a scripted command returns.
type Response struct {
	Result toolchain.Result
	Err    error
	// Hook runs before the response is returned.
	Hook func()
}

// Runner answers commands from a table keyed by command line prefix. Commands
// with no matching entry succeed with empty output.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	missing   map[string]bool
	calls     []Call
}

// NewRunner returns an empty Runner.
func NewRunner() *Runner {
	return &Runner{
		responses: make(map[string]Response),
		missing:   make(map[string]bool),
	}
}

// On scripts the response for every command line starting with prefix.
func (r *Runner) On(prefix string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = resp
	return r
}

// Stdout is shorthand for a successful command printing out.
func (r *Runner) Stdout(prefix, out string) *Runner {
	return r.On(prefix, Response{Result: toolchain.Result{Stdout: []byte(out)}})
}

// Fail is shorthand for a command exiting with code and printing stderr.
func (r *Runner) Fail(prefix string, code int, stderr string) *Runner {
	return r.On(prefix, Response{Result: toolchain.Result{ExitCode: code, Stderr: []byte(stderr)}})
}

// Missing makes LookPath fail for name.
func (r *Runner) Missing(name string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[name] = true
	return r
}

// Run implements toolchain.Runner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (toolchain.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	resp, ok := r.match(call.String())
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return toolchain.Result{ExitCode: -1}, err
	}
	if !ok {
		return toolchain.Result{}, nil
	}
	if resp.Hook != nil {
		resp.Hook()
	}
	return resp.Result, resp.Err
}

// match picks the longest scripted prefix of line.
func (r *Runner) match(line string) (Response, bool) {
	var (
		best  string
		found bool
	)
	for prefix := range r.responses {
		if strings.HasPrefix(line, prefix) && (!found || len(prefix) > len(best)) {
			best, found = prefix, true
		}
	}
	return r.responses[best], found
}

// LookPath implements toolchain.Runner.
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// Calls returns the command lines run so far.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		lines = append(lines, c.String())
	}
	return lines
}

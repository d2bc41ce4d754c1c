package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// ErrNotRegistered is returned for a tool that is not on the allow-list.
var ErrNotRegistered = errors.New("process tool not registered")

// EnvPrefix prefixes the variables passed to every tool.
const EnvPrefix = "NONPLANAR_"

// Runner executes allow-listed local processes. Only commands registered up front
// can run; callers choose a tool by name and supply variables, never commands.
type Runner struct {
	registry map[string]Tool
	baseDir  string
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithTools populates the allow-list from a loaded config.
func WithTools(tools map[string]Tool) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			tool.Name = name
			r.registry[name] = tool
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger for process runs.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]Tool),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = Tool{Name: name, Command: command, Args: args}
}

// Tools returns the registered tool names, sorted.
func (r *Runner) Tools() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the outcome of a successful run.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError reports a process that ran but failed.
type ExitError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: execution failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: execution failed: %v: %s", e.Tool, e.Err, msg)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Run executes the named tool. Every variable is exported as NONPLANAR_<KEY>, and
// "{key}" placeholders in the registered arguments are replaced by its value.
// Variables never add arguments of their own.
func (r *Runner) Run(ctx context.Context, name string, vars map[string]string) (Result, error) {
	tool, ok := r.registry[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	args := make([]string, len(tool.Args))
	for i, arg := range tool.Args {
		args[i] = expand(arg, vars)
	}

	cmd := exec.CommandContext(ctx, tool.Command, args...)
	cmd.Dir = r.baseDir

	env := make([]string, 0, len(tool.Environment)+len(vars))
	for k, v := range tool.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, expand(v, vars)))
	}
	for k, v := range vars {
		env = append(env, fmt.Sprintf("%s%s=%s", EnvPrefix, strings.ToUpper(k), v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Running process tool", "tool", name, "command", tool.Command, "args", args)
	start := time.Now()
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	if err != nil {
		return res, &ExitError{Tool: name, Stderr: res.Stderr, Err: err}
	}
	r.logger.Info("Process tool finished", "tool", name, "duration", res.Duration)
	return res, nil
}

func expand(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

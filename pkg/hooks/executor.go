package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/vanderheijden86/incidentline/pkg/debug"
)

// maxOutput caps the captured stdout/stderr kept per result.
const maxOutput = 2000

// Result records one hook run.
type Result struct {
	Hook     string
	Phase    HookPhase
	Stdout   string
	Stderr   string
	Err      error
	Duration time.Duration
}

// Executor runs configured hooks. It is safe for concurrent use.
type Executor struct {
	config *Config

	mu      sync.Mutex
	results []Result
}

// NewExecutor creates an executor for config.
func NewExecutor(config *Config) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config}
}

// RunAction runs the on-action hooks matching ac.Action in order. A failing
// hook with on_error=fail stops the run and its error is returned.
func (e *Executor) RunAction(ctx context.Context, ac ActionContext) error {
	var hooks []Hook
	for _, h := range e.config.Hooks.OnAction {
		if h.Matches(ac.Action) {
			hooks = append(hooks, h)
		}
	}
	return e.runPhase(ctx, OnAction, hooks, ac.ToEnv())
}

// RunPostExport runs the post-export hooks.
func (e *Executor) RunPostExport(ctx context.Context, ec ExportContext) error {
	return e.runPhase(ctx, PostExport, e.config.Hooks.PostExport, ec.ToEnv())
}

func (e *Executor) runPhase(ctx context.Context, phase HookPhase, hooks []Hook, env []string) error {
	var errs []error
	for _, h := range hooks {
		res := e.run(ctx, phase, h, env)
		e.record(res)
		if res.Err == nil {
			continue
		}
		debug.Log("hooks: %s hook %q failed: %v", phase, h.Name, res.Err)
		err := fmt.Errorf("%s hook %q: %w", phase, h.Name, res.Err)
		if h.OnError == "fail" {
			return errors.Join(append(errs, err)...)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Executor) run(ctx context.Context, phase HookPhase, h Hook, env []string) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), env...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// sh may leave children holding the pipes after a kill.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s", timeout)
	}
	return Result{
		Hook:     h.Name,
		Phase:    phase,
		Stdout:   truncate(stdout.String(), maxOutput),
		Stderr:   truncate(stderr.String(), maxOutput),
		Err:      err,
		Duration: time.Since(start),
	}
}

func (e *Executor) record(r Result) {
	e.mu.Lock()
	e.results = append(e.results, r)
	e.mu.Unlock()
}

// Results returns a copy of all results so far.
func (e *Executor) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// HasActionHooks reports whether any on-action hook is configured.
func (e *Executor) HasActionHooks() bool {
	return len(e.config.Hooks.OnAction) > 0
}

// RunHooks loads hooks from projectDir and returns an executor, or nil when
// hooks are disabled or none are configured.
func RunHooks(projectDir string, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	loader := NewLoader(WithProjectDir(projectDir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	return NewExecutor(loader.Config()), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

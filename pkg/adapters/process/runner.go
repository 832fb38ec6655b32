// Package process runs function handlers as external commands.
//
// The command receives the validated arguments twice: as a JSON object on
// stdin, and as VOICEFLOW_ARG_<NAME> environment variables for simple scripts.
// A JSON object printed on stdout becomes the handler result; any other output
// is returned under the "output" key. A non-zero exit fails the call.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/voiceflow/pkg/registry"
)

const defaultTimeout = 10 * time.Second

// ArgPrefix prefixes the environment variables carrying arguments.
const ArgPrefix = "VOICEFLOW_ARG_"

var envUnsafe = regexp.MustCompile(`[^A-Z0-9_]`)

// Runner builds registry handlers from command declarations.
type Runner struct {
	baseDir string
	timeout time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithDefaultTimeout bounds commands that declare no timeout of their own.
func WithDefaultTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds every declared handler to reg, in name order.
func (r *Runner) Register(reg *registry.Registry, handlers map[string]HandlerConfig) {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		reg.Register(name, r.Handler(handlers[name]))
	}
}

// Handler returns a handler that runs cfg's command.
func (r *Runner) Handler(cfg HandlerConfig) registry.HandlerFunc {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		input, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments: %w", err)
		}

		// Arguments never reach the command line, so they cannot inject flags.
		cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
		cmd.Dir = r.baseDir
		cmd.Env = append(cmd.Environ(), environment(cfg.Environment, args)...)
		cmd.Stdin = bytes.NewReader(input)
		cmd.WaitDelay = time.Second

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("handler %s: %w", cfg.Name, ctx.Err())
			}
			return nil, fmt.Errorf("handler %s failed: %v: %s", cfg.Name, err, strings.TrimSpace(stderr.String()))
		}
		return parseOutput(stdout.String()), nil
	}
}

func environment(static map[string]string, args map[string]any) []string {
	env := make([]string, 0, len(static)+len(args))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		var val string
		switch v := v.(type) {
		case float64:
			val = strconv.FormatFloat(v, 'f', -1, 64)
		case string, int, int64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
		default:
			if raw, err := json.Marshal(v); err == nil {
				val = string(raw)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		key := envUnsafe.ReplaceAllString(strings.ToUpper(k), "_")
		env = append(env, ArgPrefix+key+"="+val)
	}
	return env
}

func parseOutput(output string) map[string]any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}
	var obj map[string]any
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &obj) == nil {
		return obj
	}
	var v any
	if json.Unmarshal([]byte(trimmed), &v) == nil {
		return map[string]any{"output": v}
	}
	return map[string]any{"output": trimmed}
}

package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/tidwall/gjson"
)

// ArgEnvPrefix prefixes the environment variables carrying tool arguments.
const ArgEnvPrefix = "TENDRIL_ARG_"

// DefaultGracePeriod is how long a cancelled process may take to exit after
// the interrupt signal before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner executes allow-listed local commands as tools.
// Arguments are never appended to the command line; each one is passed as a
// TENDRIL_ARG_<NAME> environment variable and the whole set as JSON on stdin.
type Runner struct {
	tools   map[string]ToolConfig
	baseDir string
	grace   time.Duration
	logger  *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithTools populates the allow-list from a loaded config.
func WithTools(tools []ToolConfig) RunnerOption {
	return func(r *Runner) {
		for _, tool := range tools {
			r.Register(tool)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		tools:  make(map[string]ToolConfig),
		grace:  DefaultGracePeriod,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list, replacing any previous
// entry with the same name.
func (r *Runner) Register(tool ToolConfig) {
	r.tools[tool.Name] = tool
}

// Tools returns the allow-listed tools sorted by name.
func (r *Runner) Tools() []ToolConfig {
	out := make([]ToolConfig, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Install registers every allow-listed command in reg.
func (r *Runner) Install(reg *registry.Registry) error {
	for _, tool := range r.Tools() {
		meta := domain.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		}
		if meta.Description == "" {
			meta.Description = "runs " + tool.Command
		}
		name := tool.Name
		err := reg.RegisterTool(meta, func(ctx context.Context, args map[string]any) (any, error) {
			return r.Execute(ctx, name, args)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the named command with args.
// Stdout that parses as a JSON object or array is returned decoded, narrowed
// to the tool's Result path when one is set; anything else is returned as a
// trimmed string. A non-zero exit is an error carrying
// stderr.
func (r *Runner) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("process tool not registered: %s", name)
	}

	if tool.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tool.Timeout)
		defer cancel()
	}

	stdin, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	cmd := exec.CommandContext(ctx, tool.Command, tool.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), environment(tool.Env, args)...)
	cmd.Stdin = bytes.NewReader(stdin)
	// Interrupt first so the process can clean up; WaitDelay kills it if
	// it is still alive after the grace period.
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.DebugContext(ctx, "process tool finished",
		"tool_name", name, "duration", time.Since(start), "error", err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return nil, fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return decodeOutput(stdout.String(), tool.Result), nil
}

func environment(static map[string]string, args map[string]any) []string {
	env := make([]string, 0, len(static)+len(args))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
		default:
			if data, err := json.Marshal(v); err == nil {
				val = string(data)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, ArgEnvPrefix+strings.ToUpper(k)+"="+val)
	}
	return env
}

func decodeOutput(output, path string) any {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	if !gjson.Valid(trimmed) {
		return trimmed
	}
	if path == "" {
		return gjson.Parse(trimmed).Value()
	}
	return gjson.Get(trimmed, path).Value()
}

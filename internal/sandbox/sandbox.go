// Package sandbox executes generated Python scrapers in a constrained child
// process: scratch working directory, import allow-list, memory and CPU
// limits, and a hard wall-clock timeout.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

// Flavor selects the execution profile for a scraper.
type Flavor string

const (
	FlavorStatic  Flavor = "static"
	FlavorDynamic Flavor = "dynamic"

	resultMarker = "SCRAPPLY_RESULT:"
)

// Error carries the classified failure of a sandbox run. Kind is one of the
// sandbox-related types.ErrKind constants.
type Error struct {
	Kind    string
	Message string
	Detail  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is a successful scraper run. Data and Metadata come from the
// scraper's return value after schema validation.
type Result struct {
	Data     []any          `json:"data"`
	Metadata map[string]any `json:"metadata"`
	Duration time.Duration  `json:"-"`
}

// Options configures a Runner.
type Options struct {
	PythonBin            string
	StaticTimeout        time.Duration
	DynamicTimeout       time.Duration
	StaticMemoryLimitMB  int
	DynamicMemoryLimitMB int
}

func DefaultOptions() Options {
	return Options{
		PythonBin:            "python3",
		StaticTimeout:        30 * time.Second,
		DynamicTimeout:       60 * time.Second,
		StaticMemoryLimitMB:  512,
		DynamicMemoryLimitMB: 1024,
	}
}

// Runner executes scrapers. It is safe for concurrent use.
type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	if opts.PythonBin == "" {
		opts.PythonBin = "python3"
	}
	return &Runner{opts: opts}
}

// outputSchema is what a scraper must return: a data array plus a metadata
// object. Anything else is treated as an execution failure.
const outputSchema = `{
	"type": "object",
	"required": ["data", "metadata"],
	"properties": {
		"data": {"type": "array"},
		"metadata": {"type": "object"}
	}
}`

var outputSchemaLoader = gojsonschema.NewStringLoader(outputSchema)

// Exec validates code, writes it to a scratch directory with the harness and
// runs it against url. The scratch directory is removed on every path. The
// returned error is an *Error for classified sandbox failures.
func (r *Runner) Exec(ctx context.Context, code, url string, flavor Flavor) (*Result, error) {
	if err := Validate(code); err != nil {
		var v *Violation
		if errors.As(err, &v) {
			return nil, &Error{Kind: types.ErrKindSafetyViolation, Message: "code failed safety validation", Detail: v.Error()}
		}
		return nil, err
	}

	timeout := r.opts.StaticTimeout
	memoryMB := r.opts.StaticMemoryLimitMB
	if flavor == FlavorDynamic {
		timeout = r.opts.DynamicTimeout
		memoryMB = r.opts.DynamicMemoryLimitMB
	}

	dir, err := os.MkdirTemp("", "scrapply-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("creating sandbox dir: %w", err)
	}
	defer os.RemoveAll(dir)

	harness, err := renderHarness(flavor, memoryMB, int(timeout.Seconds()))
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "scraper.py"), []byte(code), 0o600); err != nil {
		return nil, fmt.Errorf("writing scraper: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "runner.py"), []byte(harness), 0o600); err != nil {
		return nil, fmt.Errorf("writing harness: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.opts.PythonBin, "runner.py", url)
	cmd.Dir = dir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir, "TMPDIR=" + dir, "PYTHONUNBUFFERED=1"}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Kill the whole process group so browser children die with the runner.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		log.Printf("[SANDBOX] %s run timed out after %s", flavor, timeout)
		return nil, &Error{
			Kind:    types.ErrKindTimeout,
			Message: fmt.Sprintf("scraper exceeded %s time limit", timeout),
			Detail:  tail(stderr.String(), 500),
		}
	}

	payload, found := extractPayload(stdout.String())
	if !found {
		detail := tail(stderr.String(), 1000)
		if runErr != nil {
			return nil, &Error{
				Kind:    types.ErrKindExecution,
				Message: fmt.Sprintf("scraper process failed: %v", runErr),
				Detail:  detail,
			}
		}
		return nil, &Error{
			Kind:    types.ErrKindExecution,
			Message: "scraper produced no result",
			Detail:  detail,
		}
	}

	var envelope struct {
		OK     bool            `json:"ok"`
		Kind   string          `json:"kind"`
		Error  string          `json:"error"`
		Trace  string          `json:"trace"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, &Error{Kind: types.ErrKindExecution, Message: "unreadable scraper output", Detail: tail(payload, 500)}
	}

	if !envelope.OK {
		return nil, classify(envelope.Kind, envelope.Error, envelope.Trace)
	}

	if err := validateOutput(envelope.Result); err != nil {
		return nil, &Error{Kind: types.ErrKindExecution, Message: "scraper output failed schema validation", Detail: err.Error()}
	}

	var result Result
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return nil, &Error{Kind: types.ErrKindExecution, Message: "decoding scraper result", Detail: err.Error()}
	}
	result.Duration = elapsed
	log.Printf("[SANDBOX] %s run finished in %s with %d items", flavor, elapsed.Round(time.Millisecond), len(result.Data))
	return &result, nil
}

func classify(kind, message, trace string) *Error {
	switch kind {
	case "import":
		return &Error{Kind: types.ErrKindImport, Message: message, Detail: trace}
	case "resource":
		return &Error{Kind: types.ErrKindResource, Message: message, Detail: trace}
	case "serialization":
		return &Error{Kind: types.ErrKindExecution, Message: message, Detail: trace}
	default:
		return &Error{Kind: types.ErrKindExecution, Message: message, Detail: trace}
	}
}

func validateOutput(raw json.RawMessage) error {
	res, err := gojsonschema.Validate(outputSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// extractPayload finds the marked result line in stdout. The scraper is free
// to print whatever it wants before the harness reports.
func extractPayload(stdout string) (string, bool) {
	idx := strings.LastIndex(stdout, resultMarker)
	if idx < 0 {
		return "", false
	}
	line := stdout[idx+len(resultMarker):]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	return strings.TrimSpace(line), true
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

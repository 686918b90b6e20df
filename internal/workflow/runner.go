package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"lvc-go/internal/lvc"
)

// Event is what caused a workflow run.
type Event string

const (
	EventCommit Event = "commit"
	EventTag    Event = "tag"
	EventManual Event = "manual"
)

// Context carries the event details visible to triggers, conditions and
// actions. Action strings may reference them as $LVC_SNAPSHOT_ID,
// $LVC_COMMIT_MESSAGE, $LVC_TAG and $LVC_ROOT.
type Context struct {
	Event        Event
	SnapshotID   string
	Message      string
	Tag          string
	ChangedFiles []string
}

// Host is the repository surface that actions drive.
type Host interface {
	Root() string
	CreateSnapshot(message string) (*lvc.CommitResult, error)
	RunGC(aggressive bool) (*lvc.GCReport, error)
	Backup(destination string) (string, error)
	Notify(message string)
}

// StepResult records what one step did.
type StepResult struct {
	Name    string `json:"name"`
	Action  string `json:"action"`
	Skipped bool   `json:"skipped"`
	Detail  string `json:"detail,omitempty"`
}

// RunResult records one workflow run.
type RunResult struct {
	Workflow string       `json:"workflow"`
	Steps    []StepResult `json:"steps"`
}

// Runner executes workflows against a Host.
type Runner struct {
	store  *Store
	host   Host
	logger lvc.Logger
	out    io.Writer

	// running suppresses dispatch while a workflow is executing, so a
	// snapshot taken by a step does not fire commit triggers again.
	running bool
}

// NewRunner creates a Runner. Command output is copied to out.
func NewRunner(store *Store, host Host, logger lvc.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = lvc.NewNopLogger()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{store: store, host: host, logger: logger, out: out}
}

// Triggered reports whether w should run for ev.
func Triggered(w *Workflow, ev *Context) bool {
	for _, t := range w.Triggers {
		switch t.Type {
		case TriggerOnCommit:
			if ev.Event == EventCommit {
				return true
			}
		case TriggerOnTag:
			if ev.Event == EventTag {
				return true
			}
		case TriggerOnFileChange:
			if ev.Event != EventCommit {
				continue
			}
			for _, p := range t.Patterns {
				if matchAny(p, ev.ChangedFiles) {
					return true
				}
			}
		case TriggerManual:
			if ev.Event == EventManual {
				return true
			}
		}
	}
	return false
}

// Dispatch runs every workflow triggered by ev. A failing workflow does not
// stop the others; all failures are returned joined.
func (r *Runner) Dispatch(ctx context.Context, ev *Context) ([]*RunResult, error) {
	if r.running {
		r.logger.Debug("workflow dispatch suppressed during a workflow run", "event", ev.Event)
		return nil, nil
	}

	workflows, err := r.store.List()
	if err != nil {
		return nil, err
	}

	var results []*RunResult
	var errs []error
	for _, w := range workflows {
		if !Triggered(w, ev) {
			continue
		}
		res, err := r.execute(ctx, w, ev)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Run executes the named workflow regardless of its triggers.
func (r *Runner) Run(ctx context.Context, name string, ev *Context) (*RunResult, error) {
	w, err := r.store.Get(name)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, w, ev)
}

func (r *Runner) execute(ctx context.Context, w *Workflow, ev *Context) (*RunResult, error) {
	r.running = true
	defer func() { r.running = false }()

	r.logger.Info("workflow started", "workflow", w.Name, "event", ev.Event)
	res := &RunResult{Workflow: w.Name}

	for i, step := range w.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		sr := StepResult{Name: name, Action: step.Action.Type}

		if !conditionHolds(step.Condition, ev) {
			sr.Skipped = true
			res.Steps = append(res.Steps, sr)
			r.logger.Debug("workflow step skipped", "workflow", w.Name, "step", name, "condition", step.Condition)
			continue
		}

		detail, err := r.runAction(ctx, step.Action, ev)
		sr.Detail = detail
		res.Steps = append(res.Steps, sr)
		if err != nil {
			r.logger.Error("workflow step failed", "workflow", w.Name, "step", name, "error", err)
			return res, fmt.Errorf("workflow %s: step %s: %w", w.Name, name, err)
		}
		r.logger.Info("workflow step done", "workflow", w.Name, "step", name)
	}

	r.logger.Info("workflow finished", "workflow", w.Name, "steps", len(res.Steps))
	return res, nil
}

func conditionHolds(cond string, ev *Context) bool {
	if cond == "" || cond == "always" {
		return true
	}
	if glob, ok := strings.CutPrefix(cond, conditionChanged); ok {
		return matchAny(glob, ev.ChangedFiles)
	}
	return false
}

func (r *Runner) runAction(ctx context.Context, a Action, ev *Context) (string, error) {
	expand := func(s string) string { return os.Expand(s, r.lookup(ev)) }

	switch a.Type {
	case ActionRunCommand:
		args := make([]string, len(a.Args))
		for i, arg := range a.Args {
			args[i] = expand(arg)
		}
		return r.runCommand(ctx, expand(a.Command), args, ev)

	case ActionCreateSnapshot:
		res, err := r.host.CreateSnapshot(expand(a.Message))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("snapshot %s", res.SnapshotID), nil

	case ActionRunGC:
		report, err := r.host.RunGC(a.Aggressive)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %d objects, freed %d bytes", report.RemovedObjects, report.FreedBytes), nil

	case ActionBackup:
		dir, err := r.host.Backup(expand(a.Destination))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("backup written to %s", dir), nil

	case ActionNotify:
		msg := expand(a.Message)
		r.host.Notify(msg)
		return msg, nil
	}
	return "", fmt.Errorf("unknown action %q", a.Type)
}

func (r *Runner) runCommand(ctx context.Context, command string, args []string, ev *Context) (string, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.host.Root()
	cmd.Env = append(os.Environ(), r.environ(ev)...)

	var captured bytes.Buffer
	cmd.Stdout = io.MultiWriter(r.out, &captured)
	cmd.Stderr = io.MultiWriter(r.out, &captured)

	if err := cmd.Run(); err != nil {
		return captured.String(), fmt.Errorf("running %s: %w", command, err)
	}
	return captured.String(), nil
}

func (r *Runner) lookup(ev *Context) func(string) string {
	vars := map[string]string{}
	for _, kv := range r.environ(ev) {
		k, v, _ := strings.Cut(kv, "=")
		vars[k] = v
	}
	return func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	}
}

func (r *Runner) environ(ev *Context) []string {
	return []string{
		"LVC_ROOT=" + r.host.Root(),
		"LVC_EVENT=" + string(ev.Event),
		"LVC_SNAPSHOT_ID=" + ev.SnapshotID,
		"LVC_COMMIT_MESSAGE=" + ev.Message,
		"LVC_TAG=" + ev.Tag,
	}
}

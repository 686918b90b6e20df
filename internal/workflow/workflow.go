// Package workflow loads named automation workflows from the metadata
// directory and runs their steps in response to repository events.
package workflow

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Trigger types.
const (
	TriggerOnCommit     = "on_commit"
	TriggerOnTag        = "on_tag"
	TriggerOnFileChange = "on_file_change"
	TriggerManual       = "manual"
)

// Action types.
const (
	ActionRunCommand     = "run_command"
	ActionCreateSnapshot = "create_snapshot"
	ActionRunGC          = "run_gc"
	ActionBackup         = "backup"
	ActionNotify         = "notify"
)

const conditionChanged = "changed:"

// Workflow is one named definition, stored as <name>.toml or <name>.yaml.
type Workflow struct {
	Name        string    `toml:"name" yaml:"name"`
	Description string    `toml:"description,omitempty" yaml:"description,omitempty"`
	Triggers    []Trigger `toml:"triggers" yaml:"triggers"`
	Steps       []Step    `toml:"steps" yaml:"steps"`
}

// Trigger selects the events a workflow runs on.
// Patterns is only used by on_file_change.
type Trigger struct {
	Type     string   `toml:"type" yaml:"type"`
	Patterns []string `toml:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// Step is one action with an optional condition.
type Step struct {
	Name      string `toml:"name" yaml:"name"`
	Condition string `toml:"condition,omitempty" yaml:"condition,omitempty"`
	Action    Action `toml:"action" yaml:"action"`
}

// Action is a tagged union. Type decides which of the other fields apply:
//
//	run_command      Command, Args
//	create_snapshot  Message
//	run_gc           Aggressive
//	backup           Destination
//	notify           Message
type Action struct {
	Type        string   `toml:"type" yaml:"type"`
	Command     string   `toml:"command,omitempty" yaml:"command,omitempty"`
	Args        []string `toml:"args,omitempty" yaml:"args,omitempty"`
	Message     string   `toml:"message,omitempty" yaml:"message,omitempty"`
	Destination string   `toml:"destination,omitempty" yaml:"destination,omitempty"`
	Aggressive  bool     `toml:"aggressive,omitempty" yaml:"aggressive,omitempty"`
}

// Validate checks that every trigger, action and condition is well formed.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return errors.New("workflow has no name")
	}
	if strings.ContainsAny(w.Name, `/\`) {
		return fmt.Errorf("workflow name %q contains a path separator", w.Name)
	}

	for i, t := range w.Triggers {
		switch t.Type {
		case TriggerOnCommit, TriggerOnTag, TriggerManual:
		case TriggerOnFileChange:
			if len(t.Patterns) == 0 {
				return fmt.Errorf("trigger %d: on_file_change needs at least one pattern", i+1)
			}
			for _, p := range t.Patterns {
				if _, err := path.Match(p, ""); err != nil {
					return fmt.Errorf("trigger %d: bad pattern %q: %w", i+1, p, err)
				}
			}
		default:
			return fmt.Errorf("trigger %d: unknown type %q", i+1, t.Type)
		}
	}

	for i, s := range w.Steps {
		if err := s.validate(); err != nil {
			name := s.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return fmt.Errorf("step %s: %w", name, err)
		}
	}
	return nil
}

func (s *Step) validate() error {
	if c := s.Condition; c != "" && c != "always" {
		glob, ok := strings.CutPrefix(c, conditionChanged)
		if !ok {
			return fmt.Errorf("unknown condition %q", c)
		}
		if _, err := path.Match(glob, ""); err != nil {
			return fmt.Errorf("bad condition pattern %q: %w", glob, err)
		}
	}

	a := s.Action
	switch a.Type {
	case ActionRunCommand:
		if a.Command == "" {
			return errors.New("run_command needs a command")
		}
	case ActionCreateSnapshot, ActionNotify:
		if a.Message == "" {
			return fmt.Errorf("%s needs a message", a.Type)
		}
	case ActionBackup:
		if a.Destination == "" {
			return errors.New("backup needs a destination")
		}
	case ActionRunGC:
	default:
		return fmt.Errorf("unknown action %q", a.Type)
	}
	return nil
}

// HasTrigger reports whether w declares a trigger of the given type.
func (w *Workflow) HasTrigger(typ string) bool {
	for _, t := range w.Triggers {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// matchAny reports whether any of paths matches glob. A pattern without a
// slash is also tried against each path's base name.
func matchAny(glob string, paths []string) bool {
	for _, p := range paths {
		if ok, _ := path.Match(glob, p); ok {
			return true
		}
		if !strings.Contains(glob, "/") {
			if ok, _ := path.Match(glob, path.Base(p)); ok {
				return true
			}
		}
	}
	return false
}

package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const tomlDefinition = `
name = "nightly"
description = "collect garbage after tagging"

[[triggers]]
type = "on_tag"

[[triggers]]
type = "on_file_change"
patterns = ["*.go", "go.mod"]

[[steps]]
name = "gc"
[steps.action]
type = "run_gc"
aggressive = true

[[steps]]
name = "tell"
condition = "changed:*.go"
[steps.action]
type = "notify"
message = "go files changed in $LVC_SNAPSHOT_ID"
`

const yamlDefinition = `
name: backup
triggers:
  - type: manual
steps:
  - name: copy
    action:
      type: backup
      destination: /tmp/lvc-backups
`

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "nightly.toml", tomlDefinition)
	writeDefinition(t, dir, "backup.yml", yamlDefinition)
	writeDefinition(t, dir, "README.txt", "not a workflow")

	got, err := NewStore(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() = %d workflows, want 2", len(got))
	}
	if got[0].Name != "backup" || got[1].Name != "nightly" {
		t.Errorf("List() order = %s, %s", got[0].Name, got[1].Name)
	}

	nightly := got[1]
	wantTriggers := []Trigger{{Type: TriggerOnTag}, {Type: TriggerOnFileChange, Patterns: []string{"*.go", "go.mod"}}}
	if !reflect.DeepEqual(nightly.Triggers, wantTriggers) {
		t.Errorf("Triggers = %+v", nightly.Triggers)
	}
	if !nightly.Steps[0].Action.Aggressive || nightly.Steps[1].Condition != "changed:*.go" {
		t.Errorf("Steps = %+v", nightly.Steps)
	}

	if got[0].Steps[0].Action.Destination != "/tmp/lvc-backups" {
		t.Errorf("yaml step = %+v", got[0].Steps[0])
	}
}

func TestStore_List_MissingDir(t *testing.T) {
	got, err := NewStore(filepath.Join(t.TempDir(), "workflows")).List()
	if err != nil || len(got) != 0 {
		t.Errorf("List() = %v, %v; want empty", got, err)
	}
}

func TestStore_List_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"invalid toml", map[string]string{"bad.toml": "name = "}},
		{"unknown yaml field", map[string]string{"bad.yaml": "name: x\ncolour: red\n"}},
		{"invalid definition", map[string]string{"bad.toml": "name = \"x\"\n[[steps]]\n[steps.action]\ntype = \"fly\"\n"}},
		{"duplicate name", map[string]string{"a.toml": tomlDefinition, "b.toml": tomlDefinition}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeDefinition(t, dir, name, content)
			}
			if _, err := NewStore(dir).List(); err == nil {
				t.Error("List() expected error")
			}
		})
	}
}

func TestStore_SaveGet(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "workflows"))
	w := &Workflow{
		Name:     "lint",
		Triggers: []Trigger{{Type: TriggerOnCommit}},
		Steps: []Step{
			{Name: "vet", Action: Action{Type: ActionRunCommand, Command: "go", Args: []string{"vet", "./..."}}},
		},
	}

	if err := store.Save(w); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "lint.toml")); err != nil {
		t.Fatalf("definition file missing: %v", err)
	}

	got, err := store.Get("lint")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got, w) {
		t.Errorf("Get() = %+v, want %+v", got, w)
	}

	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Save_Invalid(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(&Workflow{}); err == nil {
		t.Error("Save() expected error for invalid workflow")
	}
}

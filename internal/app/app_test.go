package app

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lvc-go/internal/lvc"
	"lvc-go/internal/testutil"
	"lvc-go/internal/workflow"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// initRepo creates a repository holding one file and returns its root.
func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "README.md", "hello\n")

	a, res, err := Init(root, Options{Out: io.Discard, Clock: testutil.FixedClock()})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if res.SequenceNumber != 1 || res.Added != 1 {
		t.Errorf("initial commit = seq %d added %d, want seq 1 added 1", res.SequenceNumber, res.Added)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return root
}

func openApp(t *testing.T, root, operation string, out io.Writer) *App {
	t.Helper()
	if out == nil {
		out = io.Discard
	}
	a, err := Open(root, Options{Operation: operation, Out: out, Clock: testutil.FixedClock()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return a
}

func TestInit(t *testing.T) {
	root := initRepo(t)
	meta := filepath.Join(root, lvc.MetadataDirName)

	for _, p := range []string{"config.toml", "ignore", "index.json", "history.log", "journal.db", "objects", "snapshots", "workflows", filepath.Join("logs", "lvc.log")} {
		if _, err := os.Stat(filepath.Join(meta, p)); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(meta, "lock")); !os.IsNotExist(err) {
		t.Errorf("lock file left behind after Close, stat err = %v", err)
	}

	if _, _, err := Init(root, Options{Out: io.Discard}); err == nil {
		t.Error("second Init() succeeded, want error")
	}
}

func TestOpen_notARepository(t *testing.T) {
	_, err := Open(t.TempDir(), Options{Operation: "status"})
	if !errors.Is(err, lvc.ErrNotARepository) {
		t.Errorf("Open() error = %v, want ErrNotARepository", err)
	}
}

func TestOpen_fromSubdirectory(t *testing.T) {
	root := initRepo(t)
	writeFile(t, root, "src/main.go", "package main\n")

	a := openApp(t, filepath.Join(root, "src"), "status", nil)
	defer a.Close()

	if a.Root() != root {
		t.Errorf("Root() = %q, want %q", a.Root(), root)
	}
	changes, err := a.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(changes.Added) != 1 || changes.Added[0] != "src/main.go" {
		t.Errorf("Status().Added = %v, want [src/main.go]", changes.Added)
	}
}

func TestCommit_recordsOperation(t *testing.T) {
	root := initRepo(t)
	writeFile(t, root, "README.md", "hello again\n")

	a := openApp(t, root, "commit", nil)
	res, err := a.Commit("second")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if res.SequenceNumber != 2 || res.Modified != 1 {
		t.Errorf("Commit() = seq %d modified %d, want seq 2 modified 1", res.SequenceNumber, res.Modified)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b := openApp(t, root, "ops", nil)
	defer b.Close()
	ops, err := b.Operations(10)
	if err != nil {
		t.Fatalf("Operations() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("Operations() returned %d records, want 2", len(ops))
	}
	if ops[0].Operation != "commit" || ops[0].Status != "success" || ops[0].FinishedAt == nil {
		t.Errorf("newest operation = %+v, want finished successful commit", ops[0])
	}
	if ops[1].Operation != "init" {
		t.Errorf("oldest operation = %q, want init", ops[1].Operation)
	}
}

func TestReadOnlyOperationsAreNotJournaled(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "history", nil)
	if _, err := a.History(false); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	a.Close()

	b := openApp(t, root, "ops", nil)
	defer b.Close()
	ops, err := b.Operations(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Errorf("Operations() returned %d records, want only init", len(ops))
	}
}

func TestFail_marksOperation(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "rollback", nil)
	_, err := a.Rollback("nope", lvc.RollbackOptions{})
	if err == nil {
		t.Fatal("Rollback(nope) succeeded, want error")
	}
	a.Fail(err)
	a.Close()

	b := openApp(t, root, "ops", nil)
	defer b.Close()
	ops, err := b.Operations(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Operation != "rollback" || ops[0].Status != "error" {
		t.Errorf("Operations(1) = %+v, want failed rollback", ops)
	}
}

func TestLock_excludesSecondWriter(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "commit", nil)
	if _, err := a.Commit("holding"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	b := openApp(t, root, "gc", nil)
	_, err := b.GC(lvc.GCOptions{})
	if !errors.Is(err, lvc.ErrLocked) {
		t.Errorf("GC() while locked error = %v, want ErrLocked", err)
	}
	b.Close()

	// Readers are not blocked.
	c := openApp(t, root, "status", nil)
	if _, err := c.Status(); err != nil {
		t.Errorf("Status() while locked error = %v", err)
	}
	c.Close()

	a.Close()

	d := openApp(t, root, "gc", nil)
	defer d.Close()
	if _, err := d.GC(lvc.GCOptions{}); err != nil {
		t.Errorf("GC() after release error = %v", err)
	}
}

func TestGC_recordsRun(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "gc", nil)
	if _, err := a.GC(lvc.GCOptions{DryRun: true}); err != nil {
		t.Fatalf("GC() error = %v", err)
	}
	a.Close()

	b := openApp(t, root, "ops", nil)
	defer b.Close()
	runs, err := b.GCRuns(10)
	if err != nil {
		t.Fatalf("GCRuns() error = %v", err)
	}
	if len(runs) != 1 || !runs[0].DryRun {
		t.Errorf("GCRuns() = %+v, want one dry run", runs)
	}
}

func TestTag(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "tag", nil)
	id, err := a.Tag("v1", "1")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	a.Close()

	b := openApp(t, root, "history", nil)
	defer b.Close()
	if got := b.Tags()["v1"]; got != id {
		t.Errorf("Tags()[v1] = %q, want %q", got, id)
	}
	resolved, err := b.ResolveRef("v1")
	if err != nil || resolved != id {
		t.Errorf("ResolveRef(v1) = %q, %v; want %q", resolved, err, id)
	}
}

func TestConfigSet_persists(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "config set", nil)
	if err := a.ConfigSet("gc.keep_snapshots", "7"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}
	if err := a.ConfigSet("compression.codec", "zip"); err == nil {
		t.Error("ConfigSet(compression.codec, zip) succeeded, want error")
	}
	a.Close()

	b := openApp(t, root, "config get", nil)
	defer b.Close()
	got, err := b.ConfigGet("gc.keep_snapshots")
	if err != nil || got != "7" {
		t.Errorf("ConfigGet(gc.keep_snapshots) = %q, %v; want 7", got, err)
	}
}

func TestDiff_patch(t *testing.T) {
	root := initRepo(t)
	writeFile(t, root, "README.md", "goodbye\n")
	writeFile(t, root, "new.txt", "fresh\n")

	a := openApp(t, root, "diff", nil)
	defer a.Close()

	res, err := a.Diff("", "", true)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if res.To != WorkingTree {
		t.Errorf("To = %q, want %q", res.To, WorkingTree)
	}
	if len(res.Patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(res.Patches))
	}
	added, modified := res.Patches[0], res.Patches[1]
	if added.Path != "new.txt" || !strings.Contains(added.Patch, "+fresh") {
		t.Errorf("added patch = %+v", added)
	}
	if modified.Path != "README.md" || !strings.Contains(modified.Patch, "-hello") || !strings.Contains(modified.Patch, "+goodbye") {
		t.Errorf("modified patch = %+v", modified)
	}
}

func TestDiff_betweenSnapshots(t *testing.T) {
	root := initRepo(t)
	writeFile(t, root, "README.md", "v2\n")

	a := openApp(t, root, "commit", nil)
	if _, err := a.Commit("second"); err != nil {
		t.Fatal(err)
	}
	res, err := a.Diff("1", "2", false)
	a.Close()
	if err != nil {
		t.Fatalf("Diff(1, 2) error = %v", err)
	}
	if len(res.Changes.Modified) != 1 || res.Patches != nil {
		t.Errorf("Diff(1, 2) = %+v, want one modified file and no patches", res)
	}
}

func TestCommit_firesWorkflows(t *testing.T) {
	root := initRepo(t)

	var out bytes.Buffer
	a := openApp(t, root, "commit", &out)
	defer a.Close()

	err := a.wfStore.Save(&workflow.Workflow{
		Name:     "announce",
		Triggers: []workflow.Trigger{{Type: workflow.TriggerOnCommit}},
		Steps: []workflow.Step{{
			Name:   "say",
			Action: workflow.Action{Type: workflow.ActionNotify, Message: "committed $LVC_SNAPSHOT_ID"},
		}},
	})
	if err != nil {
		t.Fatalf("saving workflow: %v", err)
	}

	res, err := a.Commit("with workflow")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if want := "committed " + res.SnapshotID; !strings.Contains(out.String(), want) {
		t.Errorf("output = %q, want it to contain %q", out.String(), want)
	}
}

func TestBackup(t *testing.T) {
	root := initRepo(t)

	a := openApp(t, root, "workflow run", nil)
	defer a.Close()

	path, err := a.Backup("")
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	wantDir := filepath.Join(root, lvc.RollbackDirName, "backups")
	if filepath.Dir(path) != wantDir {
		t.Errorf("Backup() path = %q, want it in %q", path, wantDir)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("archive missing: %v", err)
	}

	a.cfg.BackupEnabled = false
	if _, err := a.Backup(""); err == nil {
		t.Error("Backup() with backup_enabled=false succeeded, want error")
	}
}

func TestRollback_restore(t *testing.T) {
	root := initRepo(t)
	writeFile(t, root, "README.md", "changed\n")

	a := openApp(t, root, "rollback", nil)
	defer a.Close()

	res, err := a.Rollback("1", lvc.RollbackOptions{Restore: true})
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if !res.Restored || res.FilesWritten != 1 {
		t.Errorf("Rollback() = %+v, want one file restored", res)
	}
	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	if err != nil || string(data) != "hello\n" {
		t.Errorf("README.md = %q, %v; want original content", data, err)
	}
}

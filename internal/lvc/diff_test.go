package lvc_test

import (
	"errors"
	"reflect"
	"testing"

	"lvc-go/internal/lvc"
	"lvc-go/internal/testutil"
)

func indexOf(files map[string]string) *lvc.Index {
	idx := lvc.NewIndex()
	for p, content := range files {
		idx.Files[p] = lvc.FileEntry{Path: p, ContentHash: lvc.ContentHash([]byte(content)), Size: int64(len(content))}
	}
	return idx
}

func TestDiffIndexes(t *testing.T) {
	tests := []struct {
		name  string
		older map[string]string
		newer map[string]string
		want  lvc.Changes
	}{
		{
			name:  "identical indexes",
			older: map[string]string{"a": "1", "b": "2"},
			newer: map[string]string{"a": "1", "b": "2"},
			want:  lvc.Changes{Added: []string{}, Modified: []string{}, Deleted: []string{}},
		},
		{
			name:  "empty to populated",
			older: nil,
			newer: map[string]string{"z": "1", "a": "2"},
			want:  lvc.Changes{Added: []string{"a", "z"}, Modified: []string{}, Deleted: []string{}},
		},
		{
			name:  "all three kinds",
			older: map[string]string{"keep": "k", "edit": "old", "gone": "g"},
			newer: map[string]string{"keep": "k", "edit": "new", "fresh": "f"},
			want:  lvc.Changes{Added: []string{"fresh"}, Modified: []string{"edit"}, Deleted: []string{"gone"}},
		},
		{
			name:  "rename is delete plus add",
			older: map[string]string{"old/name.txt": "same"},
			newer: map[string]string{"new/name.txt": "same"},
			want:  lvc.Changes{Added: []string{"new/name.txt"}, Modified: []string{}, Deleted: []string{"old/name.txt"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lvc.DiffIndexes(indexOf(tt.older), indexOf(tt.newer))
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("DiffIndexes() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestDiffIndexes_IgnoresModTime(t *testing.T) {
	older := indexOf(map[string]string{"a": "same"})
	newer := indexOf(map[string]string{"a": "same"})
	e := newer.Files["a"]
	e.ModifiedTime = e.ModifiedTime.Add(3600e9)
	newer.Files["a"] = e

	if got := lvc.DiffIndexes(older, newer); !got.Empty() {
		t.Errorf("DiffIndexes() = %+v, want no changes", got)
	}
}

func TestDiffIndexes_Partition(t *testing.T) {
	older := indexOf(map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"})
	newer := indexOf(map[string]string{"b": "2", "c": "x", "e": "5"})
	got := lvc.DiffIndexes(older, newer)

	seen := map[string]int{}
	for _, set := range [][]string{got.Added, got.Modified, got.Deleted} {
		for _, p := range set {
			seen[p]++
		}
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("path %s appears in %d change sets", p, n)
		}
	}
	if _, ok := seen["b"]; ok {
		t.Error("unchanged path b reported as changed")
	}
	if len(seen) != 4 {
		t.Errorf("%d changed paths, want 4 (a, c, d, e)", len(seen))
	}
}

func TestRepository_DiffSnapshots(t *testing.T) {
	tr := testutil.NewTestRepository(t, lvc.Policy{})
	tr.FS.AddFile("a.txt", []byte("a"))
	tr.FS.AddFile("b.txt", []byte("b"))
	first := tr.Commit(t, "first")
	tr.FS.AddFile("a.txt", []byte("A"))
	tr.FS.RemoveFile("b.txt")
	tr.FS.AddFile("c.txt", []byte("c"))
	second := tr.Commit(t, "second")

	got, err := tr.Repo.DiffSnapshots(first.SnapshotID, second.SnapshotID)
	if err != nil {
		t.Fatalf("DiffSnapshots() error = %v", err)
	}
	want := lvc.Changes{Added: []string{"c.txt"}, Modified: []string{"a.txt"}, Deleted: []string{"b.txt"}}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("DiffSnapshots() = %+v, want %+v", *got, want)
	}

	self, err := tr.Repo.DiffSnapshots(second.SnapshotID, second.SnapshotID)
	if err != nil {
		t.Fatalf("DiffSnapshots() error = %v", err)
	}
	if !self.Empty() {
		t.Errorf("DiffSnapshots(x, x) = %+v, want empty", self)
	}

	if _, err := tr.Repo.DiffSnapshots(first.SnapshotID, "ffffffff"); !errors.Is(err, lvc.ErrSnapshotNotFound) {
		t.Errorf("DiffSnapshots() with unknown id error = %v", err)
	}
}

func TestRepository_DiffWorkingTree(t *testing.T) {
	tr := testutil.NewTestRepository(t, lvc.Policy{})
	tr.FS.AddFile("a.txt", []byte("a"))
	res := tr.Commit(t, "first")
	tr.FS.AddFile("a.txt", []byte("changed"))
	tr.FS.AddFile("new.txt", []byte("n"))

	got, current, err := tr.Repo.DiffWorkingTree(res.SnapshotID)
	if err != nil {
		t.Fatalf("DiffWorkingTree() error = %v", err)
	}
	want := lvc.Changes{Added: []string{"new.txt"}, Modified: []string{"a.txt"}, Deleted: []string{}}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("DiffWorkingTree() = %+v, want %+v", *got, want)
	}
	if current.Len() != 2 {
		t.Errorf("scanned index has %d files, want 2", current.Len())
	}
}

package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lvc-go/internal/lvc"
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

func TestOSFilesystemManager_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, "debug.log", "noise")
	writeFile(t, root, "target/app", "binary")
	writeFile(t, root, ".lvc/index.json", "{}")
	writeFile(t, root, "lvc-rollback/backup-x/a.txt", "old")

	m := NewOSFilesystemManager([]string{"*.log", "target/"})
	idx, err := m.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if idx.Len() != 2 {
		t.Fatalf("Scan() found %d files, want 2: %v", idx.Len(), idx.Files)
	}

	a, ok := idx.Files["a.txt"]
	if !ok {
		t.Fatal("a.txt missing from index")
	}
	if a.ContentHash != lvc.ContentHash([]byte("hello")) {
		t.Errorf("a.txt hash = %s", a.ContentHash)
	}
	if a.Size != 5 {
		t.Errorf("a.txt size = %d, want 5", a.Size)
	}
	if a.ModifiedTime.IsZero() {
		t.Error("a.txt modified time not recorded")
	}

	if _, ok := idx.Files["src/main.go"]; !ok {
		t.Error("src/main.go missing or not slash-separated")
	}
}

func TestOSFilesystemManager_Scan_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.txt", "data")
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	idx, err := NewOSFilesystemManager(nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if _, ok := idx.Files["link.txt"]; ok {
		t.Error("symlink was recorded")
	}
	if idx.Len() != 1 {
		t.Errorf("Scan() found %d files, want 1", idx.Len())
	}
}

func TestOSFilesystemManager_Scan_Empty(t *testing.T) {
	idx, err := NewOSFilesystemManager(nil).Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Scan() found %d files in empty dir", idx.Len())
	}
}

func TestOSFilesystemManager_ReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dir/f.txt", "contents")

	m := NewOSFilesystemManager(nil)
	got, err := m.ReadFile(root, "dir/f.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "contents" {
		t.Errorf("ReadFile() = %q", got)
	}

	if _, err := m.ReadFile(root, "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want not exist", err)
	}
}

package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"lvc-go/internal/index"
	"lvc-go/internal/lvc"
	"lvc-go/internal/objects"
	"lvc-go/internal/snapshot"
)

// TestRepository bundles a Repository with direct handles on its collaborators.
type TestRepository struct {
	Repo      *lvc.Repository
	Root      string
	FS        *MockFilesystemManager
	Objects   *objects.MemoryObjectStore
	Index     *index.FileStore
	Snapshots *snapshot.FileStore
	History   *snapshot.HistoryFile
	Clock     *StubClock
	IDs       *StubIDGenerator
}

// NewTestRepository wires a Repository over a mock working tree, an in-memory
// object store and file-backed metadata in a temp directory.
func NewTestRepository(t *testing.T, policy lvc.Policy) *TestRepository {
	t.Helper()

	root := t.TempDir()
	meta := filepath.Join(root, lvc.MetadataDirName)

	snaps, err := snapshot.NewFileStore(filepath.Join(meta, "snapshots"))
	if err != nil {
		t.Fatalf("creating snapshot store: %v", err)
	}

	tr := &TestRepository{
		Root:      root,
		FS:        NewMockFilesystemManager(),
		Objects:   NewTestObjectStore(),
		Index:     index.NewFileStore(filepath.Join(meta, "index.json")),
		Snapshots: snaps,
		History:   snapshot.NewHistoryFile(filepath.Join(meta, "history.log"), nil),
		Clock:     FixedClock(),
		IDs:       NewStubIDGenerator(),
	}
	tr.Repo = lvc.NewRepository(root, tr.Objects, tr.FS, tr.Index, tr.Snapshots, tr.History,
		policy, lvc.NewNopLogger(), tr.Clock, tr.IDs)
	return tr
}

// Commit creates a snapshot and fails the test on error. The clock advances
// one minute first so each snapshot has a distinct timestamp.
func (tr *TestRepository) Commit(t *testing.T, message string) *lvc.CommitResult {
	t.Helper()
	tr.Clock.Advance(time.Minute)
	res, err := tr.Repo.CreateSnapshot(message)
	if err != nil {
		t.Fatalf("CreateSnapshot(%q) error = %v", message, err)
	}
	return res
}

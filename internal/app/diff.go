package app

import (
	"fmt"

	"lvc-go/internal/lvc"
	"lvc-go/internal/textdiff"
)

// WorkingTree names the working tree side of a diff.
const WorkingTree = "working tree"

// FilePatch is the unified diff of one changed path.
type FilePatch struct {
	Path    string `json:"path"`
	Status  string `json:"status"` // "added", "modified" or "deleted"
	Patch   string `json:"patch,omitempty"`
	Binary  bool   `json:"binary,omitempty"`
	TooLong bool   `json:"too_long,omitempty"`
}

// DiffResult is a file-level comparison with optional patches.
type DiffResult struct {
	From    string       `json:"from"`
	To      string       `json:"to"`
	Changes *lvc.Changes `json:"changes"`
	Patches []FilePatch  `json:"patches,omitempty"`
}

// contentSource loads the bytes of a path on one side of a diff.
type contentSource func(path string) ([]byte, error)

// Diff compares two snapshots, or a snapshot and the working tree.
// With no refs the newest snapshot is compared with the working tree; with
// one ref that snapshot is. When patch is set each changed file gets a
// unified diff.
func (a *App) Diff(fromRef, toRef string, patch bool) (*DiffResult, error) {
	var fromID string
	if fromRef == "" {
		latest, err := a.repo.Latest()
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, fmt.Errorf("no snapshots to diff against: %w", lvc.ErrSnapshotNotFound)
		}
		fromID = latest.SnapshotID
	} else {
		id, err := a.ResolveRef(fromRef)
		if err != nil {
			return nil, err
		}
		fromID = id
	}

	from, err := a.repo.LoadSnapshot(fromID)
	if err != nil {
		return nil, err
	}
	oldSide := a.snapshotSource(from)

	result := &DiffResult{From: fromID}
	var newSide contentSource
	if toRef == "" {
		changes, _, err := a.repo.DiffWorkingTree(fromID)
		if err != nil {
			return nil, err
		}
		result.To = WorkingTree
		result.Changes = changes
		newSide = func(p string) ([]byte, error) { return a.fsmgr.ReadFile(a.root, p) }
	} else {
		toID, err := a.ResolveRef(toRef)
		if err != nil {
			return nil, err
		}
		to, err := a.repo.LoadSnapshot(toID)
		if err != nil {
			return nil, err
		}
		result.To = toID
		result.Changes, err = a.repo.DiffSnapshots(fromID, toID)
		if err != nil {
			return nil, err
		}
		newSide = a.snapshotSource(to)
	}

	if !patch {
		return result, nil
	}

	add := func(p, status, aName, bName string, oldData, newData []byte) {
		d := textdiff.Unified(aName, bName, oldData, newData, textdiff.Options{})
		result.Patches = append(result.Patches, FilePatch{
			Path: p, Status: status, Patch: d.Patch, Binary: d.Binary, TooLong: d.TooLong,
		})
	}

	for _, p := range result.Changes.Added {
		data, err := newSide(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		add(p, "added", textdiff.DevNull, "b/"+p, nil, data)
	}
	for _, p := range result.Changes.Modified {
		oldData, err := oldSide(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		newData, err := newSide(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		add(p, "modified", "a/"+p, "b/"+p, oldData, newData)
	}
	for _, p := range result.Changes.Deleted {
		data, err := oldSide(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		add(p, "deleted", "a/"+p, textdiff.DevNull, data, nil)
	}
	return result, nil
}

func (a *App) snapshotSource(snap *lvc.SnapshotMetadata) contentSource {
	return func(p string) ([]byte, error) {
		entry, ok := snap.Files[p]
		if !ok {
			return nil, fmt.Errorf("%s not in snapshot %s", p, snap.ID)
		}
		return a.repo.Objects().Load(entry.ContentHash)
	}
}

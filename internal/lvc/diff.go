package lvc

import "sort"

// DiffIndexes compares two file maps by content hash.
// A path only in newer is added, a path in both with a different hash is
// modified, and a path only in older is deleted. Modification times are ignored.
func DiffIndexes(older, newer *Index) *Changes {
	var oldFiles, newFiles map[string]FileEntry
	if older != nil {
		oldFiles = older.Files
	}
	if newer != nil {
		newFiles = newer.Files
	}
	return diffFiles(oldFiles, newFiles)
}

func diffFiles(oldFiles, newFiles map[string]FileEntry) *Changes {
	changes := &Changes{
		Added:    []string{},
		Modified: []string{},
		Deleted:  []string{},
	}

	for path, entry := range newFiles {
		old, ok := oldFiles[path]
		if !ok {
			changes.Added = append(changes.Added, path)
			continue
		}
		if old.ContentHash != entry.ContentHash {
			changes.Modified = append(changes.Modified, path)
		}
	}

	for path := range oldFiles {
		if _, ok := newFiles[path]; !ok {
			changes.Deleted = append(changes.Deleted, path)
		}
	}

	sort.Strings(changes.Added)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Deleted)
	return changes
}

// DiffSnapshots compares the file maps of two stored snapshots.
func (r *Repository) DiffSnapshots(fromID, toID string) (*Changes, error) {
	from, err := r.LoadSnapshot(fromID)
	if err != nil {
		return nil, err
	}
	to, err := r.LoadSnapshot(toID)
	if err != nil {
		return nil, err
	}
	return diffFiles(from.Files, to.Files), nil
}

// DiffWorkingTree compares a stored snapshot against a fresh scan of the working tree.
func (r *Repository) DiffWorkingTree(id string) (*Changes, *Index, error) {
	snap, err := r.LoadSnapshot(id)
	if err != nil {
		return nil, nil, err
	}
	current, err := r.fsmgr.Scan(r.root)
	if err != nil {
		return nil, nil, err
	}
	return diffFiles(snap.Files, current.Files), current, nil
}

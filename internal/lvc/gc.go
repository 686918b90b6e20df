package lvc

import (
	"fmt"
	"sort"
	"time"
)

// GCOptions selects what a collection pass does.
type GCOptions struct {
	DryRun       bool
	Aggressive   bool
	PruneExpired bool
}

// ObjectInfo identifies one stored object and its on-disk size.
type ObjectInfo struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// MergeCandidate names two consecutive snapshots that record the same tree.
type MergeCandidate struct {
	Older  string `json:"older"`
	Newer  string `json:"newer"`
	Reason string `json:"reason"`
}

// GCReport summarizes one collection pass.
type GCReport struct {
	DryRun               bool             `json:"dry_run"`
	SnapshotsScanned     int              `json:"snapshots_scanned"`
	ReferencedObjects    int              `json:"referenced_objects"`
	StoredObjects        int              `json:"stored_objects"`
	Unreferenced         []ObjectInfo     `json:"unreferenced"`
	RemovedObjects       int              `json:"removed_objects"`
	FreedBytes           int64            `json:"freed_bytes"`
	PrunedSnapshots      []string         `json:"pruned_snapshots"`
	RecompressedObjects  int              `json:"recompressed_objects"`
	RecompressSavedBytes int64            `json:"recompress_saved_bytes"`
	Fragments            *FragmentReport  `json:"fragments,omitempty"`
	MergeCandidates      []MergeCandidate `json:"merge_candidates,omitempty"`
	Skipped              []string         `json:"skipped,omitempty"`
}

// RunGC marks every object reachable from a surviving snapshot and sweeps the rest.
//
// Expired snapshots are deleted before marking so that objects referenced only
// by them become collectable in the same pass. A snapshot whose delete fails
// stays in the mark set. A snapshot that cannot be read is reported in Skipped
// and disables the sweep for that pass.
func (r *Repository) RunGC(opts GCOptions) (*GCReport, error) {
	report := &GCReport{DryRun: opts.DryRun}

	prune := map[string]bool{}
	if opts.PruneExpired {
		ids, err := r.selectExpired()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !opts.DryRun {
				if err := r.snapshots.Delete(id); err != nil && !isNotExist(err) {
					r.logger.Warn("could not prune snapshot", "id", id, "error", err)
					report.Skipped = append(report.Skipped, fmt.Sprintf("snapshot %s: %v", id, err))
					continue
				}
			}
			prune[id] = true
			report.PrunedSnapshots = append(report.PrunedSnapshots, id)
		}
	}

	referenced, scanned, failed, err := r.markReferenced(prune)
	if err != nil {
		return nil, err
	}
	report.SnapshotsScanned = scanned
	report.ReferencedObjects = len(referenced)
	report.Skipped = append(report.Skipped, failed...)
	// An unreadable snapshot may reference anything, so nothing is swept.
	sweep := !opts.DryRun && len(failed) == 0
	if len(failed) > 0 {
		r.logger.Warn("gc sweep disabled", "unreadable_snapshots", len(failed))
	}

	stored, err := r.objects.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	report.StoredObjects = len(stored)

	for _, hash := range stored {
		if referenced[hash] {
			continue
		}
		size, err := r.objects.SizeOf(hash)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", hash, err))
			continue
		}
		report.Unreferenced = append(report.Unreferenced, ObjectInfo{Hash: hash, Size: size})
		if !sweep {
			continue
		}
		freed, err := r.objects.Remove(hash)
		if err != nil {
			r.logger.Warn("could not remove object", "hash", hash, "error", err)
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", hash, err))
			continue
		}
		report.RemovedObjects++
		report.FreedBytes += freed
	}

	if opts.Aggressive {
		r.aggressive(opts, referenced, prune, report)
	}

	r.logger.Info("gc complete", "dry_run", opts.DryRun, "referenced", report.ReferencedObjects,
		"unreferenced", len(report.Unreferenced), "freed", report.FreedBytes, "pruned", len(report.PrunedSnapshots))
	return report, nil
}

// selectExpired returns the live snapshot ids the retention policy drops.
// The newest live snapshot is always kept.
func (r *Repository) selectExpired() ([]string, error) {
	live, err := r.LiveHistory()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if r.policy.KeepDays > 0 {
		cutoff = r.clock.Now().Add(-time.Duration(r.policy.KeepDays) * 24 * time.Hour)
	}

	var expired []string
	for i, e := range live {
		if i == 0 {
			continue
		}
		byCount := r.policy.KeepSnapshots > 0 && i >= r.policy.KeepSnapshots
		byAge := r.policy.KeepDays > 0 && e.Timestamp.Before(cutoff)
		if byCount || byAge {
			expired = append(expired, e.SnapshotID)
		}
	}
	return expired, nil
}

// markReferenced collects every content hash named by a snapshot outside skip,
// plus the hashes of the current index. Snapshots that fail to load are
// returned as failures rather than aborting the mark.
func (r *Repository) markReferenced(skip map[string]bool) (map[string]bool, int, []string, error) {
	ids, err := r.snapshots.List()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("listing snapshots: %w", err)
	}

	referenced := make(map[string]bool)
	scanned := 0
	var failed []string
	for _, id := range ids {
		if skip[id] {
			continue
		}
		snap, err := r.snapshots.Load(id)
		if err != nil {
			r.logger.Warn("could not mark snapshot", "id", id, "error", err)
			failed = append(failed, fmt.Sprintf("snapshot %s: %v", id, err))
			continue
		}
		for _, entry := range snap.Files {
			referenced[entry.ContentHash] = true
		}
		scanned++
	}

	idx, err := r.index.Load()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("marking index: %w", err)
	}
	for _, entry := range idx.Files {
		referenced[entry.ContentHash] = true
	}
	return referenced, scanned, failed, nil
}

func (r *Repository) aggressive(opts GCOptions, referenced, prune map[string]bool, report *GCReport) {
	if !opts.DryRun {
		hashes := make([]string, 0, len(referenced))
		for h := range referenced {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)
		for _, h := range hashes {
			if !r.objects.Exists(h) {
				continue
			}
			before, after, err := r.objects.Recompress(h)
			if err != nil {
				report.Skipped = append(report.Skipped, fmt.Sprintf("recompress %s: %v", h, err))
				continue
			}
			if after < before {
				report.RecompressedObjects++
				report.RecompressSavedBytes += before - after
			}
		}
	}

	fragments, err := r.objects.CleanFragments(opts.DryRun)
	if err != nil {
		report.Skipped = append(report.Skipped, fmt.Sprintf("fragments: %v", err))
	} else {
		report.Fragments = fragments
	}

	candidates, err := r.mergeCandidates(prune)
	if err != nil {
		report.Skipped = append(report.Skipped, fmt.Sprintf("merge candidates: %v", err))
		return
	}
	report.MergeCandidates = candidates
}

// mergeCandidates walks live snapshots oldest first and reports neighbours
// whose file maps are identical.
func (r *Repository) mergeCandidates(prune map[string]bool) ([]MergeCandidate, error) {
	live, err := r.LiveHistory()
	if err != nil {
		return nil, err
	}

	var candidates []MergeCandidate
	var prev *SnapshotMetadata
	for i := len(live) - 1; i >= 0; i-- {
		e := live[i]
		if prune[e.SnapshotID] {
			continue
		}
		snap, err := r.snapshots.Load(e.SnapshotID)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, err
		}
		if prev != nil {
			switch {
			case snap.Added == 0 && snap.Modified == 0 && snap.Deleted == 0:
				candidates = append(candidates, MergeCandidate{Older: prev.ID, Newer: snap.ID, Reason: "no changes recorded"})
			case sameFiles(prev.Files, snap.Files):
				candidates = append(candidates, MergeCandidate{Older: prev.ID, Newer: snap.ID, Reason: "identical file maps"})
			}
		}
		prev = snap
	}
	return candidates, nil
}

func sameFiles(a, b map[string]FileEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for p, ea := range a {
		eb, ok := b[p]
		if !ok || ea.ContentHash != eb.ContentHash {
			return false
		}
	}
	return true
}

package lvc

import (
	"fmt"
	"sort"
)

// VerifyReport lists integrity problems found by Repository.Verify.
type VerifyReport struct {
	ObjectsChecked   int      `json:"objects_checked"`
	SnapshotsChecked int      `json:"snapshots_checked"`
	CorruptObjects   []string `json:"corrupt_objects,omitempty"`
	BrokenSnapshots  []string `json:"broken_snapshots,omitempty"`
	MissingObjects   []string `json:"missing_objects,omitempty"`
}

// Healthy reports whether no problems were found.
func (v *VerifyReport) Healthy() bool {
	return len(v.CorruptObjects) == 0 && len(v.BrokenSnapshots) == 0 && len(v.MissingObjects) == 0
}

// Verify decompresses every object and checks it against its hash, parses every
// snapshot and checks that each referenced object is present.
func (r *Repository) Verify() (*VerifyReport, error) {
	report := &VerifyReport{}

	hashes, err := r.objects.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	for _, h := range hashes {
		report.ObjectsChecked++
		data, err := r.objects.Load(h)
		if err != nil {
			report.CorruptObjects = append(report.CorruptObjects, fmt.Sprintf("%s: %v", h, err))
			continue
		}
		if got := ContentHash(data); got != h {
			report.CorruptObjects = append(report.CorruptObjects, fmt.Sprintf("%s: content hashes to %s", h, got))
		}
	}

	ids, err := r.snapshots.List()
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	missing := map[string]bool{}
	for _, id := range ids {
		report.SnapshotsChecked++
		snap, err := r.snapshots.Load(id)
		if err != nil {
			report.BrokenSnapshots = append(report.BrokenSnapshots, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		for p, entry := range snap.Files {
			if !r.objects.Exists(entry.ContentHash) && !missing[entry.ContentHash] {
				missing[entry.ContentHash] = true
				report.MissingObjects = append(report.MissingObjects, fmt.Sprintf("%s (%s in %s)", entry.ContentHash, p, id))
			}
		}
	}
	sort.Strings(report.MissingObjects)

	r.logger.Info("verify complete", "objects", report.ObjectsChecked, "snapshots", report.SnapshotsChecked, "healthy", report.Healthy())
	return report, nil
}

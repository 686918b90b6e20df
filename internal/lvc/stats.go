package lvc

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// ExtensionStats aggregates the files of one extension.
type ExtensionStats struct {
	Extension string `json:"extension"`
	Count     int    `json:"count"`
	TotalSize int64  `json:"total_size"`
	AvgSize   int64  `json:"avg_size"`
}

// TimelineEntry counts commits and changed files for one calendar day.
type TimelineEntry struct {
	Date         string `json:"date"`
	Commits      int    `json:"commits"`
	FilesChanged int    `json:"files_changed"`
}

// Stats describes the repository as a whole.
type Stats struct {
	Snapshots        int              `json:"snapshots"`
	PrunedSnapshots  int              `json:"pruned_snapshots"`
	Objects          int              `json:"objects"`
	OriginalBytes    int64            `json:"original_bytes"`
	CompressedBytes  int64            `json:"compressed_bytes"`
	CompressionRatio float64          `json:"compression_ratio"`
	TrackedFiles     int              `json:"tracked_files"`
	Extensions       []ExtensionStats `json:"extensions"`
	Timeline         []TimelineEntry  `json:"timeline"`
}

// Stats gathers object, extension and timeline statistics.
// Timeline days are computed in loc.
func (r *Repository) Stats(loc *time.Location) (*Stats, error) {
	if loc == nil {
		loc = time.UTC
	}
	stats := &Stats{}

	entries, err := r.ListHistory()
	if err != nil {
		return nil, err
	}

	byDay := map[string]*TimelineEntry{}
	var days []string
	for _, e := range entries {
		if e.Pruned {
			stats.PrunedSnapshots++
			continue
		}
		stats.Snapshots++
		day := e.Timestamp.In(loc).Format("2006-01-02")
		t, ok := byDay[day]
		if !ok {
			t = &TimelineEntry{Date: day}
			byDay[day] = t
			days = append(days, day)
		}
		t.Commits++
		t.FilesChanged += e.Added + e.Modified + e.Deleted
	}
	sort.Strings(days)
	for _, d := range days {
		stats.Timeline = append(stats.Timeline, *byDay[d])
	}

	hashes, err := r.objects.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	stats.Objects = len(hashes)
	for _, h := range hashes {
		size, err := r.objects.SizeOf(h)
		if err != nil {
			r.logger.Warn("could not size object", "hash", h, "error", err)
			continue
		}
		data, err := r.objects.Load(h)
		if err != nil {
			r.logger.Warn("could not read object", "hash", h, "error", err)
			continue
		}
		stats.CompressedBytes += size
		stats.OriginalBytes += int64(len(data))
	}
	if stats.OriginalBytes > 0 {
		stats.CompressionRatio = float64(stats.CompressedBytes) / float64(stats.OriginalBytes)
	}

	for _, e := range entries {
		if e.Pruned {
			continue
		}
		snap, err := r.snapshots.Load(e.SnapshotID)
		if err != nil {
			return nil, fmt.Errorf("loading snapshot %s: %w", e.SnapshotID, err)
		}
		stats.TrackedFiles = len(snap.Files)
		stats.Extensions = extensionStats(snap.Files)
		break
	}

	return stats, nil
}

func extensionStats(files map[string]FileEntry) []ExtensionStats {
	byExt := map[string]*ExtensionStats{}
	for p, entry := range files {
		ext := strings.ToLower(path.Ext(p))
		if ext == "" {
			ext = "(none)"
		}
		s, ok := byExt[ext]
		if !ok {
			s = &ExtensionStats{Extension: ext}
			byExt[ext] = s
		}
		s.Count++
		s.TotalSize += entry.Size
	}

	out := make([]ExtensionStats, 0, len(byExt))
	for _, s := range byExt {
		s.AvgSize = s.TotalSize / int64(s.Count)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSize != out[j].TotalSize {
			return out[i].TotalSize > out[j].TotalSize
		}
		return out[i].Extension < out[j].Extension
	})
	return out
}

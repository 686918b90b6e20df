package lvc

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const backupTimeFormat = "2006-01-02T15-04-05"

// RollbackOptions controls Repository.Rollback.
type RollbackOptions struct {
	// Restore replaces the working tree instead of exporting beside it.
	Restore bool
	// KeepIndex leaves the index untouched after a restore.
	KeepIndex bool
}

// RollbackResult reports where a rollback put things.
type RollbackResult struct {
	SnapshotID    string `json:"snapshot_id"`
	BackupDir     string `json:"backup_dir"`
	Restored      bool   `json:"restored"`
	FilesWritten  int    `json:"files_written"`
	FilesBackedUp int    `json:"files_backed_up"`
}

// Rollback brings back the snapshot id.
//
// Without Restore the snapshot is exported into a fresh directory under
// RollbackDirName. With Restore the current working files are first copied
// there, then removed, and the snapshot is written into the root.
func (r *Repository) Rollback(id string, opts RollbackOptions) (*RollbackResult, error) {
	snap, err := r.LoadSnapshot(id)
	if err != nil {
		return nil, err
	}

	backupDir, err := r.newBackupDir()
	if err != nil {
		return nil, err
	}
	result := &RollbackResult{SnapshotID: id, BackupDir: backupDir}

	if !opts.Restore {
		n, err := r.RestoreSnapshot(id, backupDir)
		if err != nil {
			return nil, err
		}
		result.FilesWritten = n
		r.logger.Info("snapshot exported", "id", id, "dir", backupDir)
		return result, nil
	}

	backedUp, err := r.backupWorkingTree(backupDir)
	if err != nil {
		return nil, err
	}
	result.FilesBackedUp = len(backedUp)

	for _, p := range backedUp {
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("clearing working tree: %w", err)
		}
	}

	n, err := r.RestoreSnapshot(id, r.root)
	if err != nil {
		return nil, err
	}
	result.FilesWritten = n
	result.Restored = true

	if !opts.KeepIndex {
		if err := r.index.Save(&Index{Files: snap.Files}); err != nil {
			return nil, fmt.Errorf("saving index: %w", err)
		}
	}

	r.logger.Info("snapshot rolled back", "id", id, "backup", backupDir, "keep_index", opts.KeepIndex)
	return result, nil
}

func (r *Repository) newBackupDir() (string, error) {
	base := filepath.Join(r.root, RollbackDirName, "backup-"+r.clock.Now().Format(backupTimeFormat))
	dir := base
	for i := 1; ; i++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		dir = fmt.Sprintf("%s-%d", base, i)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	return dir, nil
}

// backupWorkingTree copies every regular file outside the metadata and
// rollback directories into dir and returns the source paths copied.
func (r *Repository) backupWorkingTree(dir string) ([]string, error) {
	var copied []string
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == MetadataDirName || rel == RollbackDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, filepath.Join(dir, rel)); err != nil {
			return err
		}
		copied = append(copied, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("backing up working tree: %w", err)
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

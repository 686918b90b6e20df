package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"lvc-go/internal/export"
	"lvc-go/internal/lvc"
)

// journalBackup is implemented by journals that can copy themselves to a file.
type journalBackup interface {
	BackupTo(path string) error
}

// Export writes the snapshot named by ref to dest as a tar.gz archive,
// encrypted when enc is non-nil.
func (a *App) Export(ref, dest string, enc export.Encryptor) (*export.Result, error) {
	id, err := a.ResolveRef(ref)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(dest) {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		dest = abs
	}
	res, err := export.Export(a.repo, id, dest, enc)
	if err != nil {
		return nil, err
	}
	a.logger.Info("exported snapshot", "snapshot", id, "path", dest, "files", res.Files, "bytes", res.Bytes)
	return res, nil
}

// Backup is the workflow entry point for backup steps. It exports the newest
// snapshot into destination (relative paths are taken from the repository
// root, default lvc-rollback/backups) along with a copy of the journal, and
// returns the archive path.
func (a *App) Backup(destination string) (string, error) {
	if !a.cfg.BackupEnabled {
		return "", errors.New("backups are disabled (backup_enabled = false)")
	}
	latest, err := a.repo.Latest()
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", errors.New("nothing to back up: no snapshots")
	}

	dir := destination
	if dir == "" {
		dir = filepath.Join(lvc.RollbackDirName, "backups")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.root, dir)
	}
	stamp := a.clock.Now().UTC().Format("20060102T150405Z")
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", latest.SnapshotID, stamp))

	res, err := export.Export(a.repo, latest.SnapshotID, base+".tar.gz", nil)
	if err != nil {
		return "", fmt.Errorf("backing up snapshot %s: %w", latest.SnapshotID, err)
	}

	if jb, ok := a.journal.(journalBackup); ok {
		if err := jb.BackupTo(base + "-journal.db"); err != nil {
			return "", fmt.Errorf("backing up journal: %w", err)
		}
	}
	a.logger.Info("backup written", "snapshot", latest.SnapshotID, "path", res.Path)
	return res.Path, nil
}

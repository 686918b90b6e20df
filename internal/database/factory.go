package database

import (
	"fmt"
	"path/filepath"

	"lvc-go/internal/config"
	"lvc-go/internal/lvc"
)

// NewJournalFromConfig creates a Journal implementation based on the journal config type.
// Relative sqlite paths are resolved against metaDir.
func NewJournalFromConfig(cfg config.JournalConfig, metaDir string) (lvc.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite journal")
		}
		path := cfg.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(metaDir, path)
		}
		return NewSQLiteJournal(path)
	case "memory":
		return NewSQLiteJournal(":memory:")
	case "none":
		return &NopJournal{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}

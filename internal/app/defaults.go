package app

import (
	"fmt"
	"os"
)

// GetDefaults returns runtime defaults, checking environment variables first.
// Environment variables:
//   - LVC_ROOT: directory the repository search starts from (default: working directory)
//   - LVC_LOG_LEVEL: overrides log.level from the repository config
func GetDefaults() (map[string]string, error) {
	startDir, err := getStartDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"start_dir": startDir,
		"log_level": os.Getenv("LVC_LOG_LEVEL"),
	}, nil
}

// getStartDir returns LVC_ROOT when set, otherwise the working directory.
func getStartDir() (string, error) {
	if path := os.Getenv("LVC_ROOT"); path != "" {
		return path, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return wd, nil
}

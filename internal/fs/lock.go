package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"lvc-go/internal/lvc"
)

// Lock is an exclusive lock file holding the owner's pid.
type Lock struct {
	path string
}

// AcquireLock creates the lock file at path. If it already exists the
// returned error wraps lvc.ErrLocked and names the holder.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			holder := "unknown"
			if data, rerr := os.ReadFile(path); rerr == nil {
				if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil {
					holder = strconv.Itoa(pid)
				}
			}
			return nil, fmt.Errorf("%w (pid %s; remove %s if that process is gone)", lvc.ErrLocked, holder, path)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}

	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing lock file: %w", errors.Join(werr, cerr))
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Releasing a nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

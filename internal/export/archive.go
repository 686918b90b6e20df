// Package export writes a snapshot as a gzip-compressed tar archive,
// optionally sealed with age.
package export

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"lvc-go/internal/lvc"
)

// Result describes a written export.
type Result struct {
	SnapshotID string `json:"snapshot_id"`
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Bytes      int64  `json:"bytes"`
	Encrypted  bool   `json:"encrypted"`
}

// WriteArchive streams every file of snap, read from objects, as a tar.gz to w.
// Entries are written in path order. Returns the number of files written.
func WriteArchive(w io.Writer, snap *lvc.SnapshotMetadata, objects lvc.ObjectStore) (int, error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	paths := make([]string, 0, len(snap.Files))
	for p := range snap.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		entry := snap.Files[p]
		data, err := objects.Load(entry.ContentHash)
		if err != nil {
			return 0, fmt.Errorf("loading %s: %w", p, err)
		}
		hdr := &tar.Header{
			Name:     p,
			Mode:     0644,
			Size:     int64(len(data)),
			ModTime:  entry.ModifiedTime,
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return 0, fmt.Errorf("writing header for %s: %w", p, err)
		}
		if _, err := tw.Write(data); err != nil {
			return 0, fmt.Errorf("writing %s: %w", p, err)
		}
	}

	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("closing tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("closing gzip stream: %w", err)
	}
	return len(paths), nil
}

// Export writes snapshot id of repo to dest. When enc is non-nil the archive
// is encrypted as it is written. A partially written dest is removed on error.
func Export(repo *lvc.Repository, id, dest string, enc Encryptor) (*Result, error) {
	snap, err := repo.LoadSnapshot(id)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}

	counter := &countingWriter{w: f}
	files, err := write(counter, snap, repo.Objects(), enc)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing export file: %w", cerr)
	}
	if err != nil {
		os.Remove(dest)
		return nil, err
	}

	return &Result{
		SnapshotID: id,
		Path:       dest,
		Files:      files,
		Bytes:      counter.n,
		Encrypted:  enc != nil,
	}, nil
}

func write(w io.Writer, snap *lvc.SnapshotMetadata, objects lvc.ObjectStore, enc Encryptor) (int, error) {
	if enc == nil {
		return WriteArchive(w, snap, objects)
	}

	pr, pw := io.Pipe()
	type archived struct {
		files int
		err   error
	}
	done := make(chan archived, 1)
	go func() {
		n, err := WriteArchive(pw, snap, objects)
		pw.CloseWithError(err)
		done <- archived{n, err}
	}()

	encErr := enc.Encrypt(pr, w)
	// Unblock the writer if encryption stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	res := <-done
	if res.err != nil {
		return 0, res.err
	}
	if encErr != nil {
		return 0, encErr
	}
	return res.files, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

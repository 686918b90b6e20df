package export

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"

	"lvc-go/internal/lvc"
	"lvc-go/internal/testutil"
)

// readArchive returns the path -> content mapping of a tar.gz stream.
func readArchive(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(r)
	if err != nil {
		t.Fatalf("opening gzip stream: %v", err)
	}
	tr := tar.NewReader(gz)
	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("reading tar entry: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("reading %s: %v", hdr.Name, err)
		}
		files[hdr.Name] = string(data)
	}
	return files
}

func newRepoWithFiles(t *testing.T) (*testutil.TestRepository, string) {
	t.Helper()
	tr := testutil.NewTestRepository(t, lvc.Policy{})
	tr.FS.AddFile("README.md", []byte("# hi\n"))
	tr.FS.AddFile("src/main.go", []byte("package main\n"))
	res := tr.Commit(t, "export me")
	return tr, res.SnapshotID
}

func TestWriteArchive(t *testing.T) {
	tr, id := newRepoWithFiles(t)
	snap, err := tr.Repo.LoadSnapshot(id)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := WriteArchive(&buf, snap, tr.Objects)
	if err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}
	if n != 2 {
		t.Errorf("WriteArchive() = %d files, want 2", n)
	}

	got := readArchive(t, &buf)
	if got["README.md"] != "# hi\n" || got["src/main.go"] != "package main\n" || len(got) != 2 {
		t.Errorf("archive contents = %v", got)
	}
}

func TestWriteArchive_MissingObject(t *testing.T) {
	tr, id := newRepoWithFiles(t)
	snap, _ := tr.Repo.LoadSnapshot(id)
	tr.Objects.Remove(testutil.SHA1Hex([]byte("# hi\n")))

	if _, err := WriteArchive(io.Discard, snap, tr.Objects); !errors.Is(err, lvc.ErrObjectNotFound) {
		t.Errorf("WriteArchive() error = %v, want ErrObjectNotFound", err)
	}
}

func TestExport_Plain(t *testing.T) {
	tr, id := newRepoWithFiles(t)
	dest := filepath.Join(t.TempDir(), "out", "snap.tar.gz")

	res, err := Export(tr.Repo, id, dest, nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Files != 2 || res.Encrypted || res.Path != dest {
		t.Errorf("Export() = %+v", res)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != res.Bytes {
		t.Errorf("Bytes = %d, file is %d", res.Bytes, info.Size())
	}

	f, _ := os.Open(dest)
	defer f.Close()
	if got := readArchive(t, f); len(got) != 2 {
		t.Errorf("archive has %d files", len(got))
	}
}

func TestExport_UnknownSnapshot(t *testing.T) {
	tr, _ := newRepoWithFiles(t)
	dest := filepath.Join(t.TempDir(), "snap.tar.gz")

	if _, err := Export(tr.Repo, "ffffffff", dest, nil); !errors.Is(err, lvc.ErrSnapshotNotFound) {
		t.Errorf("Export() error = %v, want ErrSnapshotNotFound", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("export file created for an unknown snapshot")
	}
}

func TestExport_MissingObjectRemovesPartialFile(t *testing.T) {
	tr, id := newRepoWithFiles(t)
	tr.Objects.Remove(testutil.SHA1Hex([]byte("package main\n")))
	dest := filepath.Join(t.TempDir(), "snap.tar.gz")

	if _, err := Export(tr.Repo, id, dest, nil); err == nil {
		t.Fatal("Export() expected error")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial export left behind")
	}
}

func TestExport_Passphrase(t *testing.T) {
	tr, id := newRepoWithFiles(t)
	dest := filepath.Join(t.TempDir(), "snap.tar.gz.age")

	rcp, err := age.NewScryptRecipient("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	rcp.SetWorkFactor(10)
	enc := &AgeEncryptor{recipients: []age.Recipient{rcp}}

	res, err := Export(tr.Repo, id, dest, enc)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !res.Encrypted {
		t.Error("Encrypted = false")
	}

	ciphertext, _ := os.ReadFile(dest)
	if !bytes.HasPrefix(ciphertext, []byte("age-encryption.org/v1")) {
		t.Fatalf("export is not an age file: %q", ciphertext[:20])
	}

	wrong, _ := NewPassphraseDecryptor("wrong")
	if err := wrong.Decrypt(bytes.NewReader(ciphertext), io.Discard); err == nil {
		t.Error("Decrypt() with the wrong passphrase succeeded")
	}

	dec, _ := NewPassphraseDecryptor("correct horse")
	var plain bytes.Buffer
	if err := dec.Decrypt(bytes.NewReader(ciphertext), &plain); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got := readArchive(t, &plain); got["src/main.go"] != "package main\n" {
		t.Errorf("decrypted archive = %v", got)
	}
}

func TestExport_Recipient(t *testing.T) {
	tr, id := newRepoWithFiles(t)
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		target func(t *testing.T) string
	}{
		{
			name:   "inline key",
			target: func(*testing.T) string { return identity.Recipient().String() },
		},
		{
			name:   "recipients file",
			target: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "recipients.txt")
				if err := os.WriteFile(p, []byte("# backup key\n"+identity.Recipient().String()+"\n"), 0644); err != nil {
					t.Fatal(err)
				}
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewRecipientEncryptor(tt.target(t))
			if err != nil {
				t.Fatalf("NewRecipientEncryptor() error = %v", err)
			}
			dest := filepath.Join(t.TempDir(), "snap.age")
			if _, err := Export(tr.Repo, id, dest, enc); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			dec, err := NewIdentityDecryptor(bytes.NewReader([]byte(identity.String() + "\n")))
			if err != nil {
				t.Fatal(err)
			}
			f, _ := os.Open(dest)
			defer f.Close()
			var plain bytes.Buffer
			if err := dec.Decrypt(f, &plain); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if got := readArchive(t, &plain); len(got) != 2 {
				t.Errorf("decrypted archive has %d files", len(got))
			}
		})
	}
}

func TestNewRecipientEncryptor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"malformed key", "age1notakey"},
		{"missing file", filepath.Join(t.TempDir(), "nope.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRecipientEncryptor(tt.target); err == nil {
				t.Error("NewRecipientEncryptor() expected error")
			}
		})
	}
}

func TestNewPassphraseEncryptor_Empty(t *testing.T) {
	if _, err := NewPassphraseEncryptor(""); err == nil {
		t.Error("NewPassphraseEncryptor(\"\") expected error")
	}
}

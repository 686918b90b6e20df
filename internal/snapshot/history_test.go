package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lvc-go/internal/lvc"
)

func TestFormatParseEntry(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC)
	messages := []string{
		"simple",
		"",
		"with spaces and \"quotes\"",
		"multi\nline\tmessage",
		"msg=looks like a key",
		"unicode ✓",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			e := &lvc.HistoryEntry{SnapshotID: "0a1b2c3d", Timestamp: ts, Added: 3, Modified: 1, Deleted: 2, Message: msg}
			line := FormatEntry(e)

			got, err := ParseEntry(line)
			if err != nil {
				t.Fatalf("ParseEntry(%q) error = %v", line, err)
			}
			if got.SnapshotID != e.SnapshotID || got.Added != 3 || got.Modified != 1 || got.Deleted != 2 {
				t.Errorf("ParseEntry() = %+v", got)
			}
			if got.Message != msg {
				t.Errorf("Message = %q, want %q", got.Message, msg)
			}
			if !got.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
			}
		})
	}
}

func TestFormatEntry_Layout(t *testing.T) {
	e := &lvc.HistoryEntry{
		SnapshotID: "abcd1234",
		Timestamp:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Added:      1,
		Message:    "first",
	}
	want := `abcd1234 2024-01-15T10:30:00.000Z 1/0/0 msg="first"`
	if got := FormatEntry(e); got != want {
		t.Errorf("FormatEntry() = %q, want %q", got, want)
	}
}

func TestParseEntry_Malformed(t *testing.T) {
	lines := []string{
		"garbage",
		"abcd1234 yesterday 1/0/0 msg=\"x\"",
		"abcd1234 2024-01-15T10:30:00.000Z 1/0 msg=\"x\"",
		"abcd1234 2024-01-15T10:30:00.000Z a/b/c msg=\"x\"",
		"abcd1234 2024-01-15T10:30:00.000Z 1/0/0 message=\"x\"",
		"abcd1234 2024-01-15T10:30:00.000Z 1/0/0 msg=\"unterminated",
		"abcd1234 2024-01-15T10:30:00.000Z -1/0/0 msg=\"x\"",
	}
	for _, line := range lines {
		if _, err := ParseEntry(line); !errors.Is(err, lvc.ErrInvalidHistoryRecord) {
			t.Errorf("ParseEntry(%q) error = %v, want ErrInvalidHistoryRecord", line, err)
		}
	}
}

func TestHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.log")
	h := NewHistoryFile(path, nil)

	t.Run("empty log", func(t *testing.T) {
		entries, err := h.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("List() = %d entries, want 0", len(entries))
		}
		n, err := h.Len()
		if err != nil || n != 0 {
			t.Errorf("Len() = %d, %v", n, err)
		}
	})

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"11111111", "22222222", "33333333"} {
		err := h.Append(&lvc.HistoryEntry{SnapshotID: id, Timestamp: base.Add(time.Duration(i) * time.Minute), Message: id})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	t.Run("newest first with sequence numbers", func(t *testing.T) {
		entries, err := h.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("List() = %d entries, want 3", len(entries))
		}
		if entries[0].SnapshotID != "33333333" || entries[0].SequenceNumber != 3 {
			t.Errorf("entries[0] = %+v", entries[0])
		}
		if entries[2].SnapshotID != "11111111" || entries[2].SequenceNumber != 1 {
			t.Errorf("entries[2] = %+v", entries[2])
		}
	})

	t.Run("malformed and blank lines", func(t *testing.T) {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			t.Fatal(err)
		}
		f.WriteString("\nnot a history line\n")
		f.Close()

		if err := h.Append(&lvc.HistoryEntry{SnapshotID: "44444444", Timestamp: base, Message: "after"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		entries, err := h.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 4 {
			t.Fatalf("List() = %d entries, want 4", len(entries))
		}
		if entries[0].SnapshotID != "44444444" || entries[0].SequenceNumber != 5 {
			t.Errorf("entries[0] = %+v, want 44444444 at sequence 5", entries[0])
		}
		n, _ := h.Len()
		if n != 5 {
			t.Errorf("Len() = %d, want 5", n)
		}
	})
}

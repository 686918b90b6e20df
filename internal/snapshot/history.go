package snapshot

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"lvc-go/internal/lvc"
)

// TimestampFormat is the UTC timestamp layout used in history lines.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// FormatEntry renders one history line without the trailing newline:
//
//	<id> <timestamp> <added>/<modified>/<deleted> msg=<quoted message>
func FormatEntry(e *lvc.HistoryEntry) string {
	return fmt.Sprintf("%s %s %d/%d/%d msg=%s",
		e.SnapshotID,
		e.Timestamp.UTC().Format(TimestampFormat),
		e.Added, e.Modified, e.Deleted,
		strconv.Quote(e.Message))
}

// ParseEntry parses a line written by FormatEntry. The sequence number is not
// part of the line and is left zero.
func ParseEntry(line string) (*lvc.HistoryEntry, error) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: expected 4 fields", lvc.ErrInvalidHistoryRecord)
	}
	id, ts, counts, rest := fields[0], fields[1], fields[2], fields[3]

	if id == "" {
		return nil, fmt.Errorf("%w: empty snapshot id", lvc.ErrInvalidHistoryRecord)
	}
	timestamp, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", lvc.ErrInvalidHistoryRecord, ts)
	}

	parts := strings.Split(counts, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad counts %q", lvc.ErrInvalidHistoryRecord, counts)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: bad counts %q", lvc.ErrInvalidHistoryRecord, counts)
		}
		n[i] = v
	}

	quoted, ok := strings.CutPrefix(rest, "msg=")
	if !ok {
		return nil, fmt.Errorf("%w: missing message", lvc.ErrInvalidHistoryRecord)
	}
	msg, err := strconv.Unquote(quoted)
	if err != nil {
		return nil, fmt.Errorf("%w: bad message %s", lvc.ErrInvalidHistoryRecord, quoted)
	}

	return &lvc.HistoryEntry{
		SnapshotID: id,
		Timestamp:  timestamp,
		Added:      n[0],
		Modified:   n[1],
		Deleted:    n[2],
		Message:    msg,
	}, nil
}

// HistoryFile is the append-only history log.
type HistoryFile struct {
	path   string
	logger lvc.Logger
}

// NewHistoryFile creates a history log backed by the file at path.
func NewHistoryFile(path string, logger lvc.Logger) *HistoryFile {
	if logger == nil {
		logger = lvc.NewNopLogger()
	}
	return &HistoryFile{path: path, logger: logger}
}

// Append writes one line to the end of the log.
func (h *HistoryFile) Append(e *lvc.HistoryEntry) error {
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	if _, err := f.WriteString(FormatEntry(e) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("appending history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing history: %w", err)
	}
	return nil
}

// List returns every parseable entry, newest first. Sequence numbers are the
// 1-based position among non-empty lines; malformed lines are logged and skipped.
func (h *HistoryFile) List() ([]*lvc.HistoryEntry, error) {
	lines, err := h.lines()
	if err != nil {
		return nil, err
	}

	entries := make([]*lvc.HistoryEntry, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		e, err := ParseEntry(lines[i])
		if err != nil {
			h.logger.Warn("skipping history line", "line", i+1, "error", err)
			continue
		}
		e.SequenceNumber = i + 1
		entries = append(entries, e)
	}
	return entries, nil
}

// Len returns the number of non-empty lines in the log.
func (h *HistoryFile) Len() (int, error) {
	lines, err := h.lines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (h *HistoryFile) lines() ([]string, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return lines, nil
}

var _ lvc.HistoryLog = (*HistoryFile)(nil)

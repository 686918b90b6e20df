// Package textdiff renders unified line diffs between two versions of a file.
package textdiff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DevNull names the missing side of an added or deleted file.
const DevNull = "/dev/null"

const (
	defaultContext = 3
	sniffLen       = 8000
)

// Options controls patch rendering.
type Options struct {
	// Context is the number of unchanged lines around each hunk. 0 means 3.
	Context int
	// MaxBytes skips files whose combined size exceeds it. 0 means no limit.
	MaxBytes int
}

// Result is a rendered patch, or the reason none was rendered.
type Result struct {
	Patch   string
	Binary  bool
	TooLong bool
}

// IsBinary reports whether data looks like binary content: a NUL byte in the
// leading chunk, the same heuristic git uses.
func IsBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// Unified renders the patch turning a into b. Either side may be nil for an
// added or deleted file, in which case its name should be DevNull.
func Unified(aName, bName string, a, b []byte, opt Options) Result {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return Result{Patch: placeholder(aName, bName, "too large"), TooLong: true}
	}
	if IsBinary(a) || IsBinary(b) {
		return Result{Patch: fmt.Sprintf("Binary files %s and %s differ\n", aName, bName), Binary: true}
	}

	ctx := opt.Context
	if ctx <= 0 {
		ctx = defaultContext
	}
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	})
	if err != nil {
		return Result{Patch: placeholder(aName, bName, err.Error())}
	}
	return Result{Patch: s}
}

// splitLines keeps the trailing newline on each line. A final line without
// one gets a marker so the hunk still ends cleanly.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n\\ No newline at end of file\n"
	}
	return lines
}

func placeholder(aName, bName, reason string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n# diff omitted (%s)\n", aName, bName, reason)
}

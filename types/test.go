package types

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ethereum-optimism/infra/op-testdash/logging"
)

// TestState represents the possible states of a test after a run request
type TestState string

const (
	TestStatePassed TestState = "passed"
	TestStateFailed TestState = "failed"
	TestStateError  TestState = "error"
	TestStateReady  TestState = "ready"
)

// testFileSuffixes are removed from a file's base name to get the name the
// test is identified and titled by. Removal is case-insensitive and not
// anchored, so a token in the middle of a name is removed as well.
var testFileSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)` + regexp.QuoteMeta("Cept.php")),
	regexp.MustCompile(`(?i)` + regexp.QuoteMeta("Cest.php")),
	regexp.MustCompile(`(?i)` + regexp.QuoteMeta("Test.php")),
}

var (
	// passMarker covers functional/acceptance ("PASSED") and unit ("OK (") output.
	passMarker = regexp.MustCompile(`(PASSED|OK \()`)
	failMarker = regexp.MustCompile(`FAIL`)
)

// Test is a single discoverable test file and the outcome of its most recent run.
type Test struct {
	hash     string
	typ      string
	filename string
	title    string
	path     string

	mu     sync.RWMutex
	log    []string
	passed bool
}

// NewTest builds a Test of the given type from the full path of its file.
func NewTest(typ, path string) *Test {
	name := NormalizeFilename(filepath.Base(path))
	return &Test{
		hash:     TestHash(typ, name),
		typ:      typ,
		filename: relativeToType(typ, path),
		title:    SpacedFromCamelCase(name),
		path:     path,
	}
}

// NewTestUnder builds a Test whose filename is path relative to root, the
// directory the runner resolves the category's tests against. It falls back
// to NewTest when path is not below root.
func NewTestUnder(typ, root, path string) *Test {
	t := NewTest(typ, path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return t
	}
	t.filename = filepath.ToSlash(rel)
	return t
}

// NormalizeFilename strips the known test-file suffixes from a base name.
func NormalizeFilename(base string) string {
	for _, re := range testFileSuffixes {
		base = re.ReplaceAllLiteralString(base, "")
	}
	return base
}

// TestHash is the identity of a test: the md5 of its type followed by its
// normalized file name. It is used both as the index key and in run URLs.
func TestHash(typ, normalizedFilename string) string {
	return ContentHash(typ + normalizedFilename)
}

// ContentHash returns the hex md5 digest of s. It is an identity key, not a
// security primitive.
func ContentHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// relativeToType returns the part of path after the first "/<typ>/" segment.
func relativeToType(typ, path string) string {
	slashed := filepath.ToSlash(path)
	seg := "/" + typ + "/"
	if idx := strings.Index(slashed, seg); idx >= 0 {
		return slashed[idx+len(seg):]
	}
	return filepath.Base(path)
}

func (t *Test) Hash() string     { return t.hash }
func (t *Test) Type() string     { return t.typ }
func (t *Test) Filename() string { return t.filename }
func (t *Test) Title() string    { return t.title }
func (t *Test) Path() string     { return t.path }

func (t *Test) Passed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.passed
}

// Ran reports whether the last run produced any output.
func (t *Test) Ran() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.log) > 0
}

// State derives the test state from the log and pass flag.
func (t *Test) State() TestState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stateLocked()
}

func (t *Test) stateLocked() TestState {
	switch {
	case t.passed:
		return TestStatePassed
	case len(t.log) > 0:
		return TestStateFailed
	default:
		return TestStateError
	}
}

// Log returns a copy of the cleaned output lines of the last run.
func (t *Test) Log() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.log))
	copy(out, t.log)
	return out
}

// FormattedLog joins the log lines with newlines.
func (t *Test) FormattedLog() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return strings.Join(t.log, "\n")
}

// Reset clears the log and pass flag.
func (t *Test) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = nil
	t.passed = false
}

// RecordRun replaces the outcome of the test with the given runner output.
//
// A line with a pass marker makes the test a pass candidate, a line with a
// fail marker vetoes the pass. The decision is made once after every line
// has been seen, so a fail marker anywhere wins over pass markers before or
// after it.
func (t *Test) RecordRun(lines []string) {
	hasPass, hasFail := false, false
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if passMarker.MatchString(line) {
			hasPass = true
		}
		if failMarker.MatchString(line) {
			hasFail = true
		}
		cleaned = append(cleaned, logging.CleanLine(line))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(cleaned) == 0 {
		cleaned = nil
	}
	t.log = cleaned
	t.passed = hasPass && !hasFail
}

package runner

import (
	"strings"
	"sync"
)

// lineBuffer collects process output one line at a time. Line breaks and
// surrounding whitespace are trimmed and empty lines are dropped.
type lineBuffer struct {
	mu      sync.Mutex
	partial strings.Builder
	lines   []string
	total   int64
}

func newLineBuffer() *lineBuffer {
	return &lineBuffer{}
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	for _, c := range p {
		if c == '\n' {
			b.flushLocked()
			continue
		}
		b.partial.WriteByte(c)
	}
	return len(p), nil
}

func (b *lineBuffer) flushLocked() {
	line := cleanProcessLine(b.partial.String())
	b.partial.Reset()
	if line != "" {
		b.lines = append(b.lines, line)
	}
}

// Lines returns the collected lines, including a final unterminated one.
func (b *lineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.partial.Len() > 0 {
		b.flushLocked()
	}
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *lineBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func cleanProcessLine(line string) string {
	line = strings.ReplaceAll(line, "\r", "")
	line = strings.ReplaceAll(line, "\n", "")
	return strings.TrimSpace(line)
}

package supervisor

import (
	"strings"
	"sync"
)

// TailBuffer is an io.Writer that retains only the last max bytes written.
// It is used as a process stderr, which os/exec copies from its own
// goroutine, so access is locked.
type TailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

// NewTailBuffer creates a TailBuffer keeping max bytes.
func NewTailBuffer(max int) *TailBuffer {
	return &TailBuffer{max: max}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

// String returns the retained bytes with surrounding whitespace trimmed.
func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// Suffix formats the retained output for appending to an error message.
func (t *TailBuffer) Suffix() string {
	s := t.String()
	if s == "" {
		return ""
	}
	return "\nstderr: " + s
}

package runner

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// boundedBuffer keeps at most max bytes and silently drops the rest, so a
// noisy child never blocks on a full pipe. max <= 0 means unbounded.
type boundedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	max     int
	dropped int
}

func newBoundedBuffer(max int) *boundedBuffer {
	return &boundedBuffer{max: max}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max <= 0 {
		return b.buf.Write(p)
	}

	room := b.max - b.buf.Len()
	switch {
	case room <= 0:
		b.dropped += len(p)
	case len(p) > room:
		b.buf.Write(p[:room])
		b.dropped += len(p) - room
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *boundedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped > 0
}

// String decodes the captured bytes as UTF-8, replacing invalid sequences.
func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := strings.ToValidUTF8(b.buf.String(), "\uFFFD")
	if b.dropped > 0 {
		s = appendLine(s, fmt.Sprintf("[output truncated: %d bytes dropped]", b.dropped))
	}
	return s
}

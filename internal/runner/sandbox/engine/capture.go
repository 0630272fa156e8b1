package engine

import "sync"

// limitedBuffer keeps the first max bytes written and counts the rest.
// Writes never fail, so the drain goroutine keeps consuming the pipe even
// after the cap is hit and the child can never deadlock on a full pipe.
type limitedBuffer struct {
	mu      sync.Mutex
	max     int
	data    []byte
	dropped bool
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - len(b.data); room > 0 {
		if len(p) <= room {
			b.data = append(b.data, p...)
		} else {
			b.data = append(b.data, p[:room]...)
			b.dropped = true
		}
	} else if len(p) > 0 {
		b.dropped = true
	}
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *limitedBuffer) Clipped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

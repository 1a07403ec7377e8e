package core

// streaming.go provides the byte counter wrapped around upload bodies so
// history records how much was read even when a conversion fails midway.

import (
	"io"
	"sync/atomic"
)

// CountingReader counts bytes read from the wrapped reader.
type CountingReader struct {
	r io.Reader
	n atomic.Int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Count returns the number of bytes read so far.
func (c *CountingReader) Count() int64 {
	return c.n.Load()
}

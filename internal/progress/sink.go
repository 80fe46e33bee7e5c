// Package progress reports per-transfer progress to a terminal.
package progress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Sink receives progress updates for one transfer. Positions are
// cumulative bytes and monotonically non-decreasing within an attempt;
// a retried attempt resets the position to zero.
type Sink interface {
	SetLength(n int64)
	SetPosition(n int64)
	SetMessage(msg string)
	Finish()
}

// Nop is a Sink that discards all updates, for non-interactive runs.
type Nop struct{}

func (Nop) SetLength(int64)   {}
func (Nop) SetPosition(int64) {}
func (Nop) SetMessage(string) {}
func (Nop) Finish()           {}

// IsTerminalSupported reports whether stdout is an interactive
// terminal.
func IsTerminalSupported() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Reader wraps a reader and forwards the cumulative byte count to a
// sink as it is consumed.
type Reader struct {
	r    io.Reader
	sink Sink
	read int64
}

// NewReader creates a progress-reporting reader.
func NewReader(r io.Reader, sink Sink) *Reader {
	return &Reader{r: r, sink: sink}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.sink.SetPosition(p.read)
	}
	return n, err
}

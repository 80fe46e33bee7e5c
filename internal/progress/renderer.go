package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const barWidth = 40

// Renderer draws one progress line per worker on an interactive
// terminal, redrawing the block on a fixed interval. Each worker owns
// exactly one Bar; workers never share a bar.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	bars     []*Bar
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	drawn    int
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, interval time.Duration) *Renderer {
	return &Renderer{
		out:      out,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Bar allocates a new progress line. All bars must be allocated before
// Start.
func (r *Renderer) Bar() *Bar {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := &Bar{renderer: r}
	r.bars = append(r.bars, b)
	return b
}

// Start begins the redraw loop.
func (r *Renderer) Start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	go r.loop()
}

// Stop ends the redraw loop and clears the progress block.
func (r *Renderer) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

func (r *Renderer) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ticker.C:
			r.draw()
		case <-r.stopCh:
			r.clear()
			return
		}
	}
}

// draw repaints the whole block, moving the cursor up over the
// previous paint.
func (r *Renderer) draw() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	for i := 0; i < r.drawn; i++ {
		sb.WriteString("\x1b[1A\x1b[2K")
	}
	lines := 0
	for _, b := range r.bars {
		sb.WriteString(b.line())
		sb.WriteByte('\n')
		lines++
	}
	fmt.Fprint(r.out, sb.String())
	r.drawn = lines
}

func (r *Renderer) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	for i := 0; i < r.drawn; i++ {
		sb.WriteString("\x1b[1A\x1b[2K")
	}
	fmt.Fprint(r.out, sb.String())
	r.drawn = 0
}

// Bar is the Sink for one worker's current transfer.
type Bar struct {
	renderer *Renderer
	length   int64
	pos      int64
	msg      string
	idle     bool
}

func (b *Bar) SetLength(n int64) {
	b.renderer.mu.Lock()
	defer b.renderer.mu.Unlock()
	b.length = n
	b.idle = false
}

func (b *Bar) SetPosition(n int64) {
	b.renderer.mu.Lock()
	defer b.renderer.mu.Unlock()
	b.pos = n
	b.idle = false
}

func (b *Bar) SetMessage(msg string) {
	b.renderer.mu.Lock()
	defer b.renderer.mu.Unlock()
	b.msg = msg
	b.idle = false
}

// Finish marks the bar idle until the worker claims its next file.
func (b *Bar) Finish() {
	b.renderer.mu.Lock()
	defer b.renderer.mu.Unlock()
	b.length = 0
	b.pos = 0
	b.msg = ""
	b.idle = true
}

// line renders the bar. Caller holds the renderer lock.
func (b *Bar) line() string {
	if b.idle || b.length <= 0 {
		return "  [" + strings.Repeat("-", barWidth) + "] idle"
	}

	ratio := float64(b.pos) / float64(b.length)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * barWidth)
	bar := strings.Repeat("#", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	return fmt.Sprintf("  [%s] %s/%s %s",
		bar,
		humanize.IBytes(uint64(b.pos)),
		humanize.IBytes(uint64(b.length)),
		b.msg,
	)
}

var _ Sink = (*Bar)(nil)

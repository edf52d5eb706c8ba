package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Start(int64)  {}
func (NopProgress) Update(int64) {}
func (NopProgress) Finish()      {}
func (NopProgress) Error(error)  {}

const barWidth = 30

// BarProgress redraws a single terminal line with a bar, the item count
// and an estimate of the time left.
type BarProgress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	now     func() time.Time
	total   int64
	current int64
	started time.Time
}

// NewProgressReporter returns a reporter writing to w (os.Stderr when nil)
// that counts items named by label, e.g. "files".
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if label == "" {
		label = "items"
	}
	return &BarProgress{w: w, label: label, now: time.Now}
}

func (p *BarProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total, p.current = total, 0
	p.started = p.now()
	p.draw()
}

// Update records the number of items done. Counts never move backwards.
func (p *BarProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current > p.current {
		p.current = current
	}
	p.draw()
}

func (p *BarProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *BarProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\nerror: %v\n", err)
}

func (p *BarProgress) draw() {
	if p.total <= 0 {
		return
	}

	frac := float64(p.current) / float64(p.total)
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * barWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s%s] %3.0f%% %s/%s %s",
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled),
		frac*100,
		humanize.Comma(p.current), humanize.Comma(p.total), p.label)

	if p.current > 0 && p.current < p.total {
		elapsed := p.now().Sub(p.started)
		left := time.Duration(float64(elapsed) / frac * (1 - frac))
		fmt.Fprintf(&b, " eta %s", left.Round(time.Second))
	}
	_, _ = io.WriteString(p.w, b.String())
}

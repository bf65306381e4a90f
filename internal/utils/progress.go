package utils

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Progress is an mpb bar that is only drawn on a terminal. It may be
// advanced from several goroutines.
type Progress struct {
	container *mpb.Progress
	bar       *mpb.Bar

	mu          sync.Mutex
	description string
}

var descLength = 24

// NewProgress creates a bar for total steps. A disabled bar ignores every
// call.
func NewProgress(total int, enabled bool) *Progress {
	p := &Progress{}
	if !enabled || !isTerminal() {
		return p
	}

	fmt.Fprintln(os.Stderr)

	p.container = mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)
	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return p.label()
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name("  "),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
	return p
}

// Enabled reports whether the bar is drawn.
func (p *Progress) Enabled() bool {
	return p.bar != nil
}

func (p *Progress) label() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.description) > descLength {
		return p.description[:descLength-2] + ".."
	}
	return p.description
}

// Increment advances the bar by one step and shows description.
func (p *Progress) Increment(description string) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	p.description = description
	p.mu.Unlock()
	p.bar.Increment()
}

// Finish completes the bar, even when fewer steps ran than planned, and
// waits for the final render.
func (p *Progress) Finish() {
	if p.container == nil {
		return
	}
	p.bar.SetTotal(-1, true)
	p.container.Wait()
	fmt.Fprintln(os.Stderr)
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/binary"
)

const (
	barWidth       = 40
	redrawInterval = 100 * time.Millisecond
)

// progressBar renders download progress on a single terminal line.
type progressBar struct {
	mu    sync.Mutex
	out   io.Writer
	bar   progress.Model
	now   func() time.Time
	name  string
	total int64
	done  int64
	drawn time.Time
}

// terminalProgress returns a progress bar on stderr when stderr is a
// terminal, and nil otherwise.
func terminalProgress(cmd *cobra.Command) binary.Progress {
	out, ok := cmd.ErrOrStderr().(*os.File)
	if !ok || !isTerminal(out) {
		return nil
	}
	return newProgressBar(out)
}

func newProgressBar(out io.Writer) *progressBar {
	return &progressBar{
		out: out,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		now: time.Now,
	}
}

func (p *progressBar) Start(name string, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	p.total = total
	p.done = 0
	p.drawn = time.Time{}
	p.render()
}

func (p *progressBar) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	if p.now().Sub(p.drawn) < redrawInterval {
		return
	}
	p.render()
}

func (p *progressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.out)
}

// render must be called with mu held.
func (p *progressBar) render() {
	p.drawn = p.now()
	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r%s %s", p.name, humanize.Bytes(uint64(p.done)))
		return
	}
	pct := float64(p.done) / float64(p.total)
	if pct > 1 {
		pct = 1
	}
	fmt.Fprintf(p.out, "\r%s %s %s / %s",
		p.name, p.bar.ViewAs(pct), humanize.Bytes(uint64(p.done)), humanize.Bytes(uint64(p.total)))
}

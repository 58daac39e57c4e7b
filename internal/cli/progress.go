package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/kk-code-lab/bigtext/internal/textutil"
)

const defaultTerminalWidth = 80

// progressLine redraws a single status line on a terminal. On anything else
// it stays silent.
type progressLine struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	width   int
	shown   bool
}

func newProgressLine(w io.Writer) *progressLine {
	p := &progressLine{w: w, width: defaultTerminalWidth}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p
	}
	p.enabled = true
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		p.width = width
	}
	return p
}

func (p *progressLine) Set(format string, args ...any) {
	if !p.enabled {
		return
	}
	text := textutil.TruncateToWidth(fmt.Sprintf(format, args...), p.width-1, "…")
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "\r%s\x1b[K", text)
	p.shown = true
}

func (p *progressLine) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown {
		_, _ = fmt.Fprint(p.w, "\r\x1b[K")
		p.shown = false
	}
}

package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/palaver/pkg/chat"
	"golang.org/x/term"
)

const defaultWidth = 80

func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// LiveView shows a streamed reply while it arrives and erases it once done,
// so the final rendering replaces it.
type LiveView struct {
	out     io.Writer
	width   int
	printed string
}

func NewLiveView(out io.Writer, width int) *LiveView {
	if width <= 0 {
		width = defaultWidth
	}
	return &LiveView{out: out, width: width}
}

// Update displays content, which is the full reply so far.
func (l *LiveView) Update(content string) {
	if strings.HasPrefix(content, l.printed) {
		_, _ = fmt.Fprint(l.out, content[len(l.printed):])
	} else {
		l.Clear()
		_, _ = fmt.Fprint(l.out, content)
	}
	l.printed = content
}

// Clear erases everything shown since the last Clear.
func (l *LiveView) Clear() {
	if l.printed == "" {
		return
	}
	up := l.lineCount() - 1
	_, _ = fmt.Fprint(l.out, "\r")
	if up > 0 {
		_, _ = fmt.Fprintf(l.out, "\x1b[%dA", up)
	}
	_, _ = fmt.Fprint(l.out, "\x1b[J")
	l.printed = ""
}

func (l *LiveView) lineCount() int {
	n := 0
	for _, line := range strings.Split(l.printed, "\n") {
		w := lipgloss.Width(line)
		if w == 0 {
			n++
			continue
		}
		n += (w + l.width - 1) / l.width
	}
	return n
}

// Observer returns a live view observer for streamed replies, and the function
// to call once the reply is complete. Both are no-ops when output is not a
// terminal.
func (p *Printer) Observer() (chat.Observer, func()) {
	if !p.isTerminal || p.opts.Extract {
		return nil, func() {}
	}
	live := NewLiveView(p.out, p.width)
	return live.Update, live.Clear
}

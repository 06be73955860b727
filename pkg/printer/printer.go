package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/tokens"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// Raw disables markdown rendering.
	Raw bool
	// Only prints the last message without role header.
	Only bool
	// Extract prints only the code blocks of the last message.
	Extract bool
	// Model selects the tokenizer for PrintTokens.
	Model string
}

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	roleStyle = map[conversation.Role]lipgloss.Style{
		conversation.RoleSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
		conversation.RoleUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		conversation.RoleAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	}
)

// Printer is the terminal presentation of conversations. Markdown is rendered
// with glamour only when writing to a terminal.
type Printer struct {
	out        io.Writer
	errOut     io.Writer
	opts       Options
	isTerminal bool
	width      int
	renderer   *glamour.TermRenderer
}

var _ chat.Presenter = (*Printer)(nil)

type PrinterOption func(*Printer)

// WithTerminal overrides terminal detection.
func WithTerminal(isTerminal bool) PrinterOption {
	return func(p *Printer) {
		p.isTerminal = isTerminal
	}
}

func WithWidth(width int) PrinterOption {
	return func(p *Printer) {
		if width > 0 {
			p.width = width
		}
	}
}

func NewPrinter(out, errOut io.Writer, opts Options, options ...PrinterOption) *Printer {
	p := &Printer{
		out:        out,
		errOut:     errOut,
		opts:       opts,
		isTerminal: IsTerminal(out),
		width:      TerminalWidth(out),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) IsTerminal() bool {
	return p.isTerminal
}

func (p *Printer) Warn(msg string) {
	if p.isTerminal {
		msg = warnStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(p.errOut, msg)
}

func (p *Printer) Warnf(format string, args ...interface{}) {
	p.Warn(fmt.Sprintf(format, args...))
}

func (p *Printer) PrintMessages(conv conversation.Conversation) error {
	last, ok := conv.Last()
	if !ok {
		return nil
	}

	if p.opts.Extract {
		for _, block := range ExtractCodeBlocks(last.Content) {
			if _, err := fmt.Fprint(p.out, ensureNewline(block.Code)); err != nil {
				return err
			}
		}
		return nil
	}

	if p.opts.Only {
		content, err := p.render(last.Content)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(p.out, ensureNewline(content))
		return err
	}

	for _, msg := range conv {
		content, err := p.render(msg.Content)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(p.out, "%s\n%s", p.header(msg.Role), ensureNewline(content)); err != nil {
			return err
		}
	}
	return nil
}

const previewWidth = 40

var tokenColumns = []types.FieldName{"index", "role", "tokens", "preview"}

func (p *Printer) PrintTokens(conv conversation.Conversation) error {
	count, err := tokens.CountConversation(p.opts.Model, conv)
	if err != nil {
		return err
	}

	rows := make([]types.Row, 0, len(count.Messages))
	for idx, mc := range count.Messages {
		rows = append(rows, types.NewRow(
			types.MRP("index", idx),
			types.MRP("role", string(mc.Message.Role)),
			types.MRP("tokens", mc.Tokens),
			types.MRP("preview", Preview(mc.Message.Content, previewWidth)),
		))
	}
	if err := WriteTable(context.Background(), p.out, tokenColumns, rows...); err != nil {
		return err
	}

	_, err = fmt.Fprintf(p.out, "total tokens (with chat format overhead): %d\n", count.Total)
	return err
}

// Preview flattens s to a single line no wider than width terminal cells.
func Preview(s string, width int) string {
	return runewidth.Truncate(strings.Join(strings.Fields(s), " "), width, "...")
}

func (p *Printer) header(role conversation.Role) string {
	h := fmt.Sprintf("[%s]", role)
	if !p.isTerminal {
		return h
	}
	style, ok := roleStyle[role]
	if !ok {
		return h
	}
	return style.Render(h)
}

func (p *Printer) render(content string) (string, error) {
	if p.opts.Raw || !p.isTerminal {
		return content, nil
	}
	if p.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(p.width),
		)
		if err != nil {
			return "", errors.Wrap(err, "could not create markdown renderer")
		}
		p.renderer = r
	}
	out, err := p.renderer.Render(content)
	if err != nil {
		log.Debug().Err(err).Msg("markdown rendering failed, printing raw")
		return content, nil
	}
	return out, nil
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

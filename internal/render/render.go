package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles for console output.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Renderer writes pipeline output to the console: streamed fragments as they
// arrive, then the finished summary as a framed panel.
type Renderer struct {
	out io.Writer
}

func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Status prints a dim progress line.
func (r *Renderer) Status(msg string) {
	fmt.Fprintln(r.out, statusStyle.Render(msg))
}

// Chunk writes one streamed fragment without buffering, so the summary
// appears incrementally.
func (r *Renderer) Chunk(text string) {
	fmt.Fprint(r.out, text)
}

// Final renders the complete summary inside a titled panel.
func (r *Renderer) Final(title, body string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render(title))
	fmt.Fprintln(r.out, panelStyle.Render(body))
}

package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// viewportPane adapts a viewport to chatsync.Pane. Elements are transcript
// line positions; offsets are terminal rows.
type viewportPane struct {
	vp viewport.Model
	// rows[i] is the first row of line i; rows[len(rows)-1] is the total row
	// count and is where the bottom sentinel sits.
	rows []int
	// pending counts scroll events raised by SetScrollTop that have not been
	// delivered yet.
	pending int
}

func newViewportPane(lines int) *viewportPane {
	return &viewportPane{vp: viewport.New(0, 0), rows: make([]int, lines+1)}
}

// setContent replaces the rendered lines and resizes the view. The scroll
// offset is kept where the viewport allows it.
func (p *viewportPane) setContent(width, height int, rendered []string) {
	p.vp.Width = width
	p.vp.Height = height
	p.rows = p.rows[:0]
	row := 0
	for _, r := range rendered {
		p.rows = append(p.rows, row)
		row += lipgloss.Height(r)
	}
	p.rows = append(p.rows, row)
	p.vp.SetContent(strings.Join(rendered, "\n"))
}

func (p *viewportPane) ScrollTop() float64 { return float64(p.vp.YOffset) }

func (p *viewportPane) Height() float64 { return float64(p.vp.Height) }

func (p *viewportPane) OffsetTop(el int) float64 {
	switch {
	case el < 0:
		el = 0
	case el >= len(p.rows):
		el = len(p.rows) - 1
	}
	return float64(p.rows[el] - p.vp.YOffset)
}

func (p *viewportPane) Bottom() int { return len(p.rows) - 1 }

// SetScrollTop snaps to whole rows and queues a scroll event when the view moved.
func (p *viewportPane) SetScrollTop(top float64) bool {
	before := p.vp.YOffset
	p.vp.SetYOffset(int(math.Floor(top)))
	if p.vp.YOffset == before {
		return false
	}
	p.pending++
	return true
}

func (p *viewportPane) takePending() int {
	n := p.pending
	p.pending = 0
	return n
}

// affordance tracks the resume hint drawn in the status bar.
type affordance struct{ visible bool }

func (a *affordance) Show() { a.visible = true }
func (a *affordance) Hide() { a.visible = false }

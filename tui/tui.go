// Package tui is a terminal chat replay viewer. A playback clock stands in for
// the video player and the chat pane follows it until the user scrolls away.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/chatsync"
)

const (
	tickInterval = chatsync.DefaultInterval
	seekStep     = 10 // seconds
	// chromeRows is the height of the title and status bars around the pane.
	chromeRows = 3
)

var rates = []float64{0.25, 0.5, 1, 1.5, 2, 4}

// Options configures the viewer.
type Options struct {
	// Start is the initial playback position.
	Start time.Duration
	// Paused opens the viewer with playback stopped.
	Paused   bool
	Observer chatsync.Observer
	// Now drives the playback clock; nil uses time.Now.
	Now func() time.Time
}

// message types

type tickMsg time.Time

// paneScrolledMsg delivers scroll events raised by the synchronizer after the
// call that caused them has returned.
type paneScrolledMsg struct{ events int }

// model

type model struct {
	transcript *archive.Transcript
	clock      *chatsync.Playback
	pane       *viewportPane
	resume     *affordance
	sync       *chatsync.Synchronizer[int]
	help       help.Model
	rate       int // index into rates
	// showDeleted reveals the text of moderated lines.
	showDeleted bool
	width      int
	height     int
	ready      bool
	quitting   bool
}

func initialModel(t *archive.Transcript, opts Options) model {
	clock := chatsync.NewPlayback(opts.Now)
	clock.Load(t.Archive.Length)
	clock.Seek(opts.Start.Seconds())
	if !opts.Paused {
		clock.Play()
	}

	pane := newViewportPane(len(t.Lines))
	resume := &affordance{}
	sync := chatsync.New[int](clock, pane, t.Index(), chatsync.Options{
		Start:      t.Start,
		Affordance: resume,
		Observer:   opts.Observer,
	})
	return model{
		transcript: t,
		clock:      clock,
		pane:       pane,
		resume:     resume,
		sync:       sync,
		help:       help.New(),
		rate:       2,
	}
}

// Run starts the viewer and blocks until the user quits or ctx is done.
func Run(ctx context.Context, t *archive.Transcript, opts Options) error {
	m := initialModel(t, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, m.relayout()

	case tickMsg:
		return m, tea.Batch(tick(), m.advance())

	case paneScrolledMsg:
		for range msg.events {
			m.sync.HandleScroll()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Resume):
			m.sync.Reset()
			return m, m.scrollEvents()
		case key.Matches(msg, keys.Play):
			m.clock.Toggle()
			return m, nil
		case key.Matches(msg, keys.Back):
			return m, m.seek(-seekStep)
		case key.Matches(msg, keys.Forward):
			return m, m.seek(seekStep)
		case key.Matches(msg, keys.Slower):
			m.setRate(m.rate - 1)
			return m, nil
		case key.Matches(msg, keys.Faster):
			m.setRate(m.rate + 1)
			return m, nil
		case key.Matches(msg, keys.Deleted):
			m.showDeleted = !m.showDeleted
			if !m.ready {
				return m, nil
			}
			return m, m.relayout()
		}
		return m.scrollPane(msg)

	case tea.MouseMsg:
		return m.scrollPane(msg)
	}
	return m, nil
}

// relayout re-renders the transcript at the current size. Line positions may
// move, so a following pane re-applies the current time.
func (m model) relayout() tea.Cmd {
	m.pane.setContent(m.width, max(1, m.height-chromeRows), renderTranscript(m.transcript, m.width, m.showDeleted))
	if m.sync.State() == chatsync.Auto {
		m.sync.Reset()
	}
	return m.scrollEvents()
}

// advance runs one synchronizer tick once the pane has a size.
func (m model) advance() tea.Cmd {
	if !m.ready {
		return nil
	}
	m.sync.Tick()
	return m.scrollEvents()
}

func (m model) seek(delta float64) tea.Cmd {
	pos, ok := m.clock.CurrentTime()
	if !ok {
		return nil
	}
	m.clock.Seek(pos + delta)
	return m.advance()
}

func (m *model) setRate(i int) {
	if i < 0 || i >= len(rates) {
		return
	}
	m.rate = i
	m.clock.SetRate(rates[i])
}

// scrollEvents turns scrolls made by the synchronizer into a message so they
// are observed after the current update, like a browser scroll event.
func (m model) scrollEvents() tea.Cmd {
	n := m.pane.takePending()
	if n == 0 {
		return nil
	}
	return func() tea.Msg { return paneScrolledMsg{events: n} }
}

// scrollPane forwards user input to the viewport. Any movement it causes is a
// scroll the synchronizer did not make.
func (m model) scrollPane(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.pane.vp.YOffset
	var cmd tea.Cmd
	m.pane.vp, cmd = m.pane.vp.Update(msg)
	if m.pane.vp.YOffset != before {
		m.sync.HandleScroll()
	}
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(m.titleView())
	b.WriteString("\n")
	b.WriteString(m.pane.vp.View())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(keys.help()))
	return b.String()
}

func (m model) titleView() string {
	a := m.transcript.Archive
	title := a.Title
	if title == "" {
		title = a.ID
	}
	return styleTitle.Render(fmt.Sprintf("%s · %s", a.Channel, title))
}

func (m model) statusView() string {
	pos, _ := m.clock.CurrentTime()
	icon := "▶"
	if m.clock.Paused() {
		icon = "⏸"
	}
	status := styleStatusBar.Render(fmt.Sprintf("%s %s / %s  %gx  %s",
		icon,
		archive.FormatOffset(int64(pos)),
		archive.FormatOffset(int64(m.transcript.Archive.Length/time.Second)),
		rates[m.rate],
		m.sync.State(),
	))
	if m.resume.visible {
		status += " " + styleResume.Render("scrolled away · r to resume")
	}
	return status
}

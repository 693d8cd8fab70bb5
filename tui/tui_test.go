package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/chatsync"
)

var t0 = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

// testTranscript has one line per second for n seconds.
func testTranscript(n int) *archive.Transcript {
	a := archive.Archive{ID: "v1", Channel: "chan", Title: "stream", Start: t0, Length: time.Minute}
	msgs := make([]archive.Message, n)
	for i := range msgs {
		msgs[i] = archive.Message{ID: int64(i + 1), Username: "user", Text: fmt.Sprintf("line %d", i), Time: t0.Add(time.Duration(i) * time.Second)}
	}
	return archive.NewTranscript(a, msgs)
}

func newTestModel(t *testing.T, start time.Duration) model {
	t.Helper()
	now := t0
	m := initialModel(testTranscript(50), Options{
		Start:  start,
		Paused: true,
		Now:    func() time.Time { return now },
	})
	// 13 rows leaves a 10-row pane.
	return update(t, m, tea.WindowSizeMsg{Width: 60, Height: 13})
}

// update applies msg and delivers any scroll events it produced.
func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	if cmd == nil {
		return m
	}
	if ev, ok := cmd().(paneScrolledMsg); ok {
		next, _ = m.Update(ev)
		m = next.(model)
	}
	return m
}

func keyRune(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func TestResizeScrollsToPlaybackTime(t *testing.T) {
	m := newTestModel(t, 20*time.Second)
	// line 20 sits just below a 10-row pane
	if got := m.pane.vp.YOffset; got != 10 {
		t.Fatalf("YOffset = %d, want 10", got)
	}
	if m.sync.State() != chatsync.Auto {
		t.Fatalf("state = %v, want auto after own scroll event", m.sync.State())
	}
	if m.pane.pending != 0 {
		t.Fatalf("pending = %d, want 0", m.pane.pending)
	}
}

func TestUserScrollSwitchesToManual(t *testing.T) {
	m := newTestModel(t, 20*time.Second)

	m = update(t, m, keyRune('j'))
	if m.pane.vp.YOffset != 11 {
		t.Fatalf("YOffset = %d, want 11", m.pane.vp.YOffset)
	}
	if m.sync.State() != chatsync.Manual {
		t.Fatalf("state = %v, want manual", m.sync.State())
	}
	if !m.resume.visible {
		t.Fatal("resume hint hidden in manual mode")
	}
	if !strings.Contains(m.View(), "r to resume") {
		t.Error("view does not show resume hint")
	}

	// seeking while manual leaves the pane alone
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.pane.vp.YOffset != 11 {
		t.Fatalf("YOffset = %d after seek in manual, want 11", m.pane.vp.YOffset)
	}

	m = update(t, m, keyRune('r'))
	if m.sync.State() != chatsync.Auto {
		t.Fatalf("state = %v after resume, want auto", m.sync.State())
	}
	if m.resume.visible {
		t.Fatal("resume hint still visible")
	}
	// position is now 30s
	if m.pane.vp.YOffset != 20 {
		t.Fatalf("YOffset = %d after resume, want 20", m.pane.vp.YOffset)
	}
}

func TestSeekFollowsInAuto(t *testing.T) {
	m := newTestModel(t, 20*time.Second)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.pane.vp.YOffset != 20 {
		t.Fatalf("YOffset = %d, want 20", m.pane.vp.YOffset)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.pane.vp.YOffset != 0 {
		t.Fatalf("YOffset = %d, want 0", m.pane.vp.YOffset)
	}
	if m.sync.State() != chatsync.Auto {
		t.Fatalf("state = %v, want auto", m.sync.State())
	}
}

func TestPastLastLineScrollsToBottom(t *testing.T) {
	m := newTestModel(t, 45*time.Second)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	// 50 rows in a 10-row pane
	if m.pane.vp.YOffset != 40 {
		t.Fatalf("YOffset = %d, want 40", m.pane.vp.YOffset)
	}
}

func TestLateOwnScrollEventIsNotManual(t *testing.T) {
	m := newTestModel(t, 20*time.Second)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(model)
	if cmd == nil {
		t.Fatal("expected a scroll event command")
	}
	ev, ok := cmd().(paneScrolledMsg)
	if !ok || ev.events != 1 {
		t.Fatalf("cmd produced %#v, want one scroll event", ev)
	}
	if m.sync.State() != chatsync.Auto {
		t.Fatal("state changed before the event was delivered")
	}
	next, _ = m.Update(ev)
	m = next.(model)
	if m.sync.State() != chatsync.Auto {
		t.Fatalf("state = %v, want auto", m.sync.State())
	}
}

func TestTickBeforeResizeIsIgnored(t *testing.T) {
	m := initialModel(testTranscript(5), Options{Now: func() time.Time { return t0 }})
	next, cmd := m.Update(tickMsg(t0))
	m = next.(model)
	if cmd == nil {
		t.Fatal("tick did not reschedule")
	}
	if m.pane.pending != 0 {
		t.Fatal("unsized pane was scrolled")
	}
}

func TestPlaybackKeys(t *testing.T) {
	m := newTestModel(t, 0)
	if !m.clock.Paused() {
		t.Fatal("expected paused start")
	}
	m = update(t, m, keyRune('p'))
	if m.clock.Paused() {
		t.Fatal("play key did not start playback")
	}
	m = update(t, m, keyRune('+'))
	if rates[m.rate] != 1.5 {
		t.Fatalf("rate = %v, want 1.5", rates[m.rate])
	}
	for range 10 {
		m = update(t, m, keyRune('-'))
	}
	if m.rate != 0 {
		t.Fatalf("rate index = %d, want 0", m.rate)
	}

	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit did not return tea.Quit")
	}
}

func TestViewportPane(t *testing.T) {
	p := newViewportPane(3)
	p.setContent(20, 2, []string{"a", "b\nb", "c"})
	if got := p.rows; len(got) != 4 || got[1] != 1 || got[2] != 3 || got[3] != 4 {
		t.Fatalf("rows = %v", got)
	}
	if p.Bottom() != 3 {
		t.Fatalf("Bottom = %d, want 3", p.Bottom())
	}
	if !p.SetScrollTop(1.7) {
		t.Fatal("SetScrollTop reported no move")
	}
	if p.ScrollTop() != 1 {
		t.Fatalf("ScrollTop = %v, want 1", p.ScrollTop())
	}
	if got := p.OffsetTop(2); got != 2 {
		t.Fatalf("OffsetTop(2) = %v, want 2", got)
	}
	if p.SetScrollTop(1) {
		t.Fatal("SetScrollTop reported a move to the same row")
	}
	if n := p.takePending(); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
	if p.takePending() != 0 {
		t.Fatal("pending not cleared")
	}
}

func TestRenderLine(t *testing.T) {
	base := archive.Message{Username: "bob", DisplayName: "Bob", Text: "hello", Time: t0.Add(90 * time.Second)}

	got := renderLine(base, t0.Unix(), 0, false)
	for _, want := range []string{"[0:01:30]", "Bob", "hello"} {
		if !strings.Contains(got, want) {
			t.Errorf("line %q missing %q", got, want)
		}
	}

	action := base
	action.Text = "/me waves"
	got = renderLine(action, t0.Unix(), 0, false)
	if strings.Contains(got, "/me") || !strings.Contains(got, "waves") {
		t.Errorf("action line = %q", got)
	}

	deleted := base
	deleted.Deleted = true
	deleted.Text = "spam"
	if got := renderLine(deleted, t0.Unix(), 0, false); !strings.Contains(got, "<message deleted>") || strings.Contains(got, "spam") {
		t.Errorf("hidden deleted line = %q", got)
	}
	if got := renderLine(deleted, t0.Unix(), 0, true); !strings.Contains(got, "spam") {
		t.Errorf("shown deleted line = %q", got)
	}
	// Text redacted upstream has nothing to show.
	deleted.Text = ""
	if got := renderLine(deleted, t0.Unix(), 0, true); !strings.Contains(got, "<message deleted>") {
		t.Errorf("redacted line = %q", got)
	}
}

func TestToggleDeletedLines(t *testing.T) {
	tr := testTranscript(50)
	tr.Lines[2].Deleted = true
	tr.Lines[2].Text = strings.Repeat("spam ", 30)
	now := t0
	m := initialModel(tr, Options{Paused: true, Now: func() time.Time { return now }})
	m = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 13})

	if v := m.pane.vp.View(); strings.Contains(v, "spam") || !strings.Contains(v, "<message deleted>") {
		t.Fatalf("deleted text visible by default:\n%s", v)
	}
	if h := m.pane.rows[3] - m.pane.rows[2]; h != 1 {
		t.Fatalf("hidden line height = %d, want 1", h)
	}

	m = update(t, m, keyRune('x'))
	if !m.showDeleted {
		t.Fatal("showDeleted not set")
	}
	if v := m.pane.vp.View(); !strings.Contains(v, "spam") {
		t.Fatalf("deleted text not shown:\n%s", v)
	}
	if h := m.pane.rows[3] - m.pane.rows[2]; h < 2 {
		t.Fatalf("shown line height = %d, want wrapped rows", h)
	}
	if last := m.pane.rows[len(m.pane.rows)-1]; last <= 50 {
		t.Fatalf("total rows = %d, want more than 50 after expanding", last)
	}

	m = update(t, m, keyRune('x'))
	if v := m.pane.vp.View(); strings.Contains(v, "spam") {
		t.Fatalf("deleted text still shown:\n%s", v)
	}
	if last := m.pane.rows[len(m.pane.rows)-1]; last != 50 {
		t.Fatalf("total rows = %d, want 50", last)
	}
}

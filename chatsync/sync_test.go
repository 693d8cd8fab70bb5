package chatsync

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

// rowPane lays out one row per line; element i starts at row i and the
// bottom sentinel sits after the last row.
type rowPane struct {
	rows    int
	height  float64
	top     float64
	pending int // scroll events not yet delivered
	sets    int
}

func (p *rowPane) ScrollTop() float64 { return p.top }
func (p *rowPane) Height() float64 { return p.height }
func (p *rowPane) OffsetTop(el int) float64 { return float64(el) - p.top }
func (p *rowPane) Bottom() int { return p.rows }

func (p *rowPane) SetScrollTop(top float64) bool {
	p.sets++
	max := float64(p.rows) + 1 - p.height
	if top > max {
		top = max
	}
	if top < 0 {
		top = 0
	}
	if top == p.top {
		return false
	}
	p.top = top
	p.pending++
	return true
}

// deliver hands queued scroll events to the synchronizer.
func (p *rowPane) deliver(s *Synchronizer[int]) {
	for p.pending > 0 {
		p.pending--
		s.HandleScroll()
	}
}

type fakeClock struct {
	t  float64
	ok bool
}

func (c *fakeClock) CurrentTime() (float64, bool) { return c.t, c.ok }

type fakeAffordance struct{ visible bool }

func (a *fakeAffordance) Show() { a.visible = true }
func (a *fakeAffordance) Hide() { a.visible = false }

type fixture struct {
	clock   *fakeClock
	pane    *rowPane
	aff     *fakeAffordance
	sync    *Synchronizer[int]
	scrolls []int
}

func newFixture(start int64, height float64, ts ...int64) *fixture {
	f := &fixture{
		clock: &fakeClock{ok: true},
		pane:  &rowPane{rows: len(ts), height: height},
		aff:   &fakeAffordance{},
	}
	f.sync = New[int](f.clock, f.pane, linesAt(ts...), Options{
		Start:      start,
		Affordance: f.aff,
		Observer: Observer{
			Scrolled: func(_ float64, idx int) { f.scrolls = append(f.scrolls, idx) },
		},
	})
	return f
}

func TestScrollToTargets(t *testing.T) {
	tests := []struct {
		name   string
		ts     []int64
		target float64
		want   int
	}{
		{"scenario A: between lines", []int64{10, 20, 30}, 15, 1},
		{"scenario B: exact match", []int64{10, 20, 30}, 30, 2},
		{"scenario C: bottom sentinel", []int64{10, 20, 30}, 99, 3},
		{"scenario D: empty index", nil, 12, 0},
		{"fractional target rounds up", []int64{10, 20, 30}, 20.4, 2},
		{"fractional target on a line", []int64{10, 20, 30}, 19.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(0, 2, tt.ts...)
			f.sync.ScrollTo(tt.target)
			if len(f.scrolls) != 1 || f.scrolls[0] != tt.want {
				t.Fatalf("scrolls = %v, want [%d]", f.scrolls, tt.want)
			}
		})
	}
}

func TestScrollToAlignsTargetBelowPane(t *testing.T) {
	f := newFixture(0, 3, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	f.sync.ScrollTo(7) // index 6
	// rows 3,4,5 fill the pane; row 6 is just below it.
	if f.pane.top != 3 {
		t.Fatalf("top = %v, want 3", f.pane.top)
	}
}

func TestScrollToIdempotent(t *testing.T) {
	f := newFixture(0, 3, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	f.sync.ScrollTo(8)
	first := f.pane.top
	f.pane.deliver(f.sync)
	f.sync.ScrollTo(8)
	f.pane.deliver(f.sync)
	if f.pane.top != first {
		t.Fatalf("second ScrollTo moved pane to %v, want %v", f.pane.top, first)
	}
	if f.sync.State() != Auto {
		t.Fatalf("state = %v after repeated automatic scroll, want auto", f.sync.State())
	}
}

func TestTickAddsStartOffset(t *testing.T) {
	f := newFixture(100, 2, 105, 110, 120)
	f.clock.t = 8 // 108 -> index 1
	f.sync.Tick()
	if len(f.scrolls) != 1 || f.scrolls[0] != 1 {
		t.Fatalf("scrolls = %v, want [1]", f.scrolls)
	}
}

func TestTickSkipsUnchangedTime(t *testing.T) {
	// scenario E
	f := newFixture(0, 2, 10, 20, 30)
	f.clock.t = 15
	f.sync.Tick()
	f.pane.deliver(f.sync)
	f.sync.Tick()
	if len(f.scrolls) != 1 {
		t.Fatalf("scrollTo invoked %d times, want 1", len(f.scrolls))
	}
	f.clock.t = 16
	f.sync.Tick()
	if len(f.scrolls) != 2 {
		t.Fatalf("scrollTo invoked %d times after time advanced, want 2", len(f.scrolls))
	}
}

func TestTickWithoutClockIsNoop(t *testing.T) {
	f := newFixture(0, 2, 10, 20, 30)
	f.clock.ok = false
	f.sync.Tick()
	if len(f.scrolls) != 0 || f.pane.sets != 0 {
		t.Fatalf("expected no scroll while clock unavailable, got %v", f.scrolls)
	}
	// an unavailable clock must not poison lastApplied
	f.clock.ok = true
	f.clock.t = 0
	f.sync.Tick()
	if len(f.scrolls) != 1 {
		t.Fatalf("scrolls = %v, want one once clock is ready", f.scrolls)
	}
}

func TestManualScrollFreezes(t *testing.T) {
	// scenario F
	f := newFixture(0, 2, 10, 20, 30)
	f.sync.HandleScroll()
	if f.sync.State() != Manual {
		t.Fatalf("state = %v, want manual", f.sync.State())
	}
	if !f.aff.visible {
		t.Fatal("resume affordance not shown")
	}
	f.clock.t = 25
	f.sync.Tick()
	if len(f.scrolls) != 0 {
		t.Fatalf("ticked while manual: %v", f.scrolls)
	}
}

func TestSelfScrollIsNotManual(t *testing.T) {
	f := newFixture(0, 2, 10, 20, 30, 40, 50)
	f.clock.t = 45
	f.sync.Tick()
	if f.pane.pending != 1 {
		t.Fatalf("pending = %d, want 1", f.pane.pending)
	}
	f.pane.deliver(f.sync)
	if f.sync.State() != Auto {
		t.Fatalf("state = %v after own scroll, want auto", f.sync.State())
	}
	// flag is single-use: the next event is the user's
	f.sync.HandleScroll()
	if f.sync.State() != Manual {
		t.Fatalf("state = %v after user scroll, want manual", f.sync.State())
	}
}

func TestStationaryScrollLeavesNoFlag(t *testing.T) {
	f := newFixture(0, 2, 10, 20, 30)
	f.clock.t = 5 // target row 0, pane already at top
	f.sync.Tick()
	if f.pane.pending != 0 {
		t.Fatalf("pane moved unexpectedly")
	}
	f.sync.HandleScroll()
	if f.sync.State() != Manual {
		t.Fatalf("user scroll swallowed by stale flag")
	}
}

func TestResetCatchesUpWhilePaused(t *testing.T) {
	f := newFixture(0, 2, 10, 20, 30, 40, 50, 60)
	f.clock.t = 55
	f.sync.Tick()
	f.pane.deliver(f.sync)

	f.sync.HandleScroll()
	f.pane.top = 0 // user scrolled back up
	if !f.aff.visible {
		t.Fatal("affordance hidden after manual scroll")
	}

	// clock has not moved (paused), but reset must still snap back
	f.sync.Reset()
	if f.sync.State() != Auto {
		t.Fatalf("state = %v after reset, want auto", f.sync.State())
	}
	if f.aff.visible {
		t.Fatal("affordance still visible after reset")
	}
	if len(f.scrolls) != 2 {
		t.Fatalf("scrolls = %v, want a catch-up scroll", f.scrolls)
	}
	if f.pane.top != 3 {
		t.Fatalf("top = %v, want 3", f.pane.top)
	}
	f.pane.deliver(f.sync)
	if f.sync.State() != Auto {
		t.Fatalf("catch-up scroll treated as manual")
	}
}

func TestStateMachineProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		f := newFixture(0, 3, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
		manualSeen := false
		resetsSinceManual := 0
		for step := 0; step < 30; step++ {
			switch rng.Intn(3) {
			case 0:
				f.pane.top = float64(rng.Intn(8))
				f.sync.HandleScroll()
				manualSeen = true
				resetsSinceManual = 0
			case 1:
				f.sync.Reset()
				resetsSinceManual++
			default:
				f.clock.t = float64(rng.Intn(14))
				f.sync.Tick()
			}
			f.pane.deliver(f.sync)

			wantAuto := !manualSeen || resetsSinceManual >= 1
			if got := f.sync.State() == Auto; got != wantAuto {
				t.Fatalf("iter %d step %d: auto=%v, want %v", iter, step, got, wantAuto)
			}
			if f.aff.visible == wantAuto {
				t.Fatalf("iter %d step %d: affordance visible=%v in state %v", iter, step, f.aff.visible, f.sync.State())
			}
		}
	}
}

func TestStateChangedObserver(t *testing.T) {
	var transitions []string
	clock := &fakeClock{ok: true}
	pane := &rowPane{rows: 3, height: 2}
	s := New[int](clock, pane, linesAt(1, 2, 3), Options{
		Observer: Observer{StateChanged: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}},
	})
	s.HandleScroll()
	s.HandleScroll()
	s.Reset()
	want := []string{"auto->manual", "manual->auto"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	var reads atomic.Int32
	clock := ClockFunc(func() (float64, bool) {
		n := reads.Add(1)
		return float64(n), true
	})
	s := New[int](clock, &rowPane{rows: 3, height: 2}, linesAt(1, 2, 3), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	deadline := time.After(2 * time.Second)
	for reads.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("Run did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

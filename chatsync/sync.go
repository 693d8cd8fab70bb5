package chatsync

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is how often Run polls the clock.
const DefaultInterval = time.Second

// State is the scroll override state.
type State int

const (
	// Auto means the synchronizer drives the pane.
	Auto State = iota
	// Manual means the user has scrolled and automatic scrolling is frozen.
	Manual
)

func (s State) String() string {
	switch s {
	case Auto:
		return "auto"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// Pane is the scrollable chat view. Offsets are in the pane's own units
// (pixels, terminal rows) and only need to be consistent with each other.
type Pane[E any] interface {
	// ScrollTop is the current scroll offset.
	ScrollTop() float64
	// Height is the visible height.
	Height() float64
	// OffsetTop is the element's top edge relative to the visible top of the pane.
	OffsetTop(el E) float64
	// Bottom is the sentinel element that follows the last chat line.
	Bottom() E
	// SetScrollTop scrolls the pane and reports whether the visible position
	// changed. A pane that did not move must not emit a scroll event.
	SetScrollTop(top float64) bool
}

// Affordance is the "resume auto-scroll" control shown while in Manual.
type Affordance interface {
	Show()
	Hide()
}

// Observer receives notifications after the synchronizer acts. Nil fields are skipped.
type Observer struct {
	// Scrolled is called after an automatic scroll; index is the located line,
	// or the number of lines for the bottom sentinel.
	Scrolled func(target float64, index int)
	// StateChanged is called on every Auto/Manual transition.
	StateChanged func(from, to State)
}

// Options configures a Synchronizer.
type Options struct {
	// Start is added to the clock's playback time to get a line timestamp.
	Start int64
	// Affordance is optional.
	Affordance Affordance
	Observer   Observer
}

// Synchronizer aligns a chat pane with playback time.
type Synchronizer[E any] struct {
	mu sync.Mutex

	clock      Clock
	pane       Pane[E]
	lines      []Line[E]
	start      int64
	affordance Affordance
	observer   Observer

	state       State
	lastApplied float64
	applied     bool
	// selfScroll marks the next scroll event as caused by scrollTo. It is
	// cleared by the first scroll observation, whatever its origin.
	selfScroll bool
}

// New returns a synchronizer in the Auto state.
func New[E any](clock Clock, pane Pane[E], lines []Line[E], opts Options) *Synchronizer[E] {
	return &Synchronizer[E]{
		clock:      clock,
		pane:       pane,
		lines:      lines,
		start:      opts.Start,
		affordance: opts.Affordance,
		observer:   opts.Observer,
		state:      Auto,
	}
}

// Len returns the number of indexed lines.
func (s *Synchronizer[E]) Len() int { return len(s.lines) }

// State returns the current override state.
func (s *Synchronizer[E]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tick reads the clock and scrolls when playback time has moved.
func (s *Synchronizer[E]) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()
}

func (s *Synchronizer[E]) tick() {
	now, ok := s.clock.CurrentTime()
	if !ok {
		return
	}
	if s.state != Auto {
		return
	}
	if s.applied && now == s.lastApplied {
		return
	}
	s.lastApplied = now
	s.applied = true
	s.scrollTo(now + float64(s.start))
}

// ScrollTo scrolls so the first line at or after target sits just below the
// visible area. It applies regardless of the override state.
func (s *Synchronizer[E]) ScrollTo(target float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTo(target)
}

func (s *Synchronizer[E]) scrollTo(target float64) {
	idx := s.locate(target)
	var el E
	if idx < len(s.lines) {
		el = s.lines[idx].Element
	} else {
		el = s.pane.Bottom()
	}
	top := s.pane.ScrollTop() + s.pane.OffsetTop(el) - s.pane.Height()

	s.selfScroll = true
	if !s.pane.SetScrollTop(top) {
		s.selfScroll = false
	}
	if s.observer.Scrolled != nil {
		s.observer.Scrolled(target, idx)
	}
}

func (s *Synchronizer[E]) locate(target float64) int {
	return LocateTime(s.lines, target)
}

// HandleScroll reports a scroll event observed on the pane.
func (s *Synchronizer[E]) HandleScroll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfScroll {
		s.selfScroll = false
		return
	}
	if s.state != Auto {
		return
	}
	s.setState(Manual)
	if s.affordance != nil {
		s.affordance.Show()
	}
}

// Reset re-enables automatic scrolling and immediately catches up with the clock.
func (s *Synchronizer[E]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Manual {
		s.setState(Auto)
		if s.affordance != nil {
			s.affordance.Hide()
		}
	}
	// Forget the last applied time so a paused player still snaps into place.
	s.applied = false
	s.tick()
}

func (s *Synchronizer[E]) setState(to State) {
	from := s.state
	s.state = to
	if s.observer.StateChanged != nil {
		s.observer.StateChanged(from, to)
	}
}

// Run calls Tick every interval until ctx is done.
func (s *Synchronizer[E]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

package chatsync

import (
	"sync"
	"time"
)

// Clock reports the current playback position in seconds. ok is false while
// the player cannot report a time, e.g. before it has loaded.
type Clock interface {
	CurrentTime() (seconds float64, ok bool)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() (float64, bool)

// CurrentTime implements Clock.
func (f ClockFunc) CurrentTime() (float64, bool) { return f() }

// Playback is a controllable playback clock for viewers that have no embedded
// player. It starts unloaded and paused at zero.
type Playback struct {
	mu  sync.Mutex
	now func() time.Time

	loaded   bool
	paused   bool
	rate     float64
	duration float64 // 0 means unbounded
	pos      float64 // position at anchor
	anchor   time.Time
}

// NewPlayback returns a clock driven by now, or time.Now when now is nil.
func NewPlayback(now func() time.Time) *Playback {
	if now == nil {
		now = time.Now
	}
	return &Playback{now: now, paused: true, rate: 1}
}

// Load marks the media ready. duration bounds the position; zero leaves it
// unbounded. Reloading keeps the current position.
func (p *Playback) Load(duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		p.pos = p.position()
	}
	p.loaded = true
	p.duration = duration.Seconds()
	p.pos = p.clamp(p.pos)
	p.anchor = p.now()
}

// CurrentTime implements Clock.
func (p *Playback) CurrentTime() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return 0, false
	}
	return p.position(), true
}

// Play resumes playback.
func (p *Playback) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.anchor = p.now()
	p.paused = false
}

// Pause freezes the position.
func (p *Playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.pos = p.position()
	p.anchor = p.now()
	p.paused = true
}

// Toggle flips between playing and paused and reports whether it is now paused.
func (p *Playback) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.pos = p.position()
	}
	p.anchor = p.now()
	p.paused = !p.paused
	return p.paused
}

// Paused reports whether playback is paused.
func (p *Playback) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Seek moves to an absolute position in seconds.
func (p *Playback) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = p.clamp(seconds)
	p.anchor = p.now()
}

// SetRate changes the playback speed; non-positive rates are ignored.
func (p *Playback) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = p.position()
	p.anchor = p.now()
	p.rate = rate
}

// position must be called with mu held.
func (p *Playback) position() float64 {
	if p.paused {
		return p.pos
	}
	elapsed := p.now().Sub(p.anchor).Seconds() * p.rate
	return p.clamp(p.pos + elapsed)
}

func (p *Playback) clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if p.duration > 0 && v > p.duration {
		return p.duration
	}
	return v
}

package frame

import (
	"sync"
	"time"
)

// DefaultInterval approximates a 60 Hz frame cadence.
const DefaultInterval = 16 * time.Millisecond

// Scheduler runs a callback at the next frame boundary. Requests made
// before that boundary coalesce: however many times a frame is requested,
// the callback runs once per tick. This is what keeps a burst of input
// events within one frame down to a single repaint.
type Scheduler interface {
	// RequestFrame schedules fn for the next tick, replacing any
	// previously pending callback.
	RequestFrame(fn func(now time.Time))
	// Stop cancels the pending callback and releases resources. The
	// scheduler must not be used afterwards.
	Stop()
}

// TickerScheduler paces callbacks with a real time.Ticker. Callbacks run
// on the scheduler's goroutine; callers marshal UI work themselves.
type TickerScheduler struct {
	mu      sync.Mutex
	pending func(time.Time)
	ticker  *time.Ticker
	clock   Clock
	stopCh  chan struct{}
	stopped bool
}

// NewTickerScheduler starts a scheduler ticking at the given interval.
// A non-positive interval falls back to DefaultInterval.
func NewTickerScheduler(interval time.Duration, clock Clock) *TickerScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = SystemClock()
	}
	s := &TickerScheduler{
		ticker: time.NewTicker(interval),
		clock:  clock,
		stopCh: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *TickerScheduler) loop() {
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.mu.Lock()
			fn := s.pending
			s.pending = nil
			s.mu.Unlock()
			if fn != nil {
				fn(s.clock.Now())
			}
		}
	}
}

// RequestFrame implements Scheduler.
func (s *TickerScheduler) RequestFrame(fn func(now time.Time)) {
	s.mu.Lock()
	if !s.stopped {
		s.pending = fn
	}
	s.mu.Unlock()
}

// Stop implements Scheduler.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.pending = nil
	s.mu.Unlock()

	s.ticker.Stop()
	close(s.stopCh)
}

// ManualScheduler is a test scheduler stepped explicitly. Each Tick
// advances the shared manual clock and runs the pending callback, which
// mirrors one animation frame.
type ManualScheduler struct {
	clock   *ManualClock
	pending func(time.Time)
	stopped bool
	ticks   int
}

// NewManualScheduler returns a scheduler driven by the given clock.
func NewManualScheduler(clock *ManualClock) *ManualScheduler {
	return &ManualScheduler{clock: clock}
}

// RequestFrame implements Scheduler.
func (m *ManualScheduler) RequestFrame(fn func(now time.Time)) {
	if !m.stopped {
		m.pending = fn
	}
}

// Stop implements Scheduler.
func (m *ManualScheduler) Stop() {
	m.stopped = true
	m.pending = nil
}

// Pending reports whether a frame callback is waiting.
func (m *ManualScheduler) Pending() bool {
	return m.pending != nil
}

// Ticks returns how many frames have run.
func (m *ManualScheduler) Ticks() int {
	return m.ticks
}

// Tick advances the clock by dt and runs the pending callback, if any.
// Returns true if a callback ran.
func (m *ManualScheduler) Tick(dt time.Duration) bool {
	m.clock.Advance(dt)
	fn := m.pending
	m.pending = nil
	if fn == nil {
		return false
	}
	m.ticks++
	fn(m.clock.Now())
	return true
}

// RunUntilIdle ticks at dt intervals until no callback is pending or the
// frame budget is exhausted. Returns the number of frames run.
func (m *ManualScheduler) RunUntilIdle(dt time.Duration, maxFrames int) int {
	ran := 0
	for m.Pending() && ran < maxFrames {
		m.Tick(dt)
		ran++
	}
	return ran
}

package easel

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// frameScheduler drives the engine's frame loop from a ticker. It owns no
// rendering state: every tick invokes the callback it was started with.
//
// Stopping is synchronous. stop returns only after the loop goroutine has
// exited and no further tick can run, which is what lets Destroy release
// render targets without a frame in flight.
type frameScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
	running bool

	// Instantaneous fps measured from consecutive tick timestamps.
	// Atomic so Metrics can read while the loop writes.
	fpsBits       atomic.Uint64
	lastTickNanos atomic.Int64
}

// newFrameScheduler creates a scheduler targeting the given rate.
// fps <= 0 means the scheduler never runs and frames are driven manually.
func newFrameScheduler(fps int) *frameScheduler {
	s := &frameScheduler{}
	if fps > 0 {
		s.interval = time.Second / time.Duration(fps)
	}
	return s
}

// start launches the frame loop. It is a no-op if the scheduler is
// already running or has no target rate.
func (s *frameScheduler) start(tick func(time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.interval <= 0 {
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	s.running = true
	go s.loop(tick, s.done, s.stopped)
}

func (s *frameScheduler) loop(tick func(time.Time), done, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			tick(now)
		}
	}
}

// stop halts the loop and waits for it to exit. Safe to call multiple
// times and from multiple goroutines; every caller blocks until the loop
// is gone.
func (s *frameScheduler) stop() {
	s.mu.Lock()
	stopped := s.stopped
	if s.running {
		s.running = false
		close(s.done)
	}
	s.mu.Unlock()

	if stopped != nil {
		<-stopped
	}
}

// noteTick records a tick timestamp and updates the measured rate. The
// engine calls it for scheduled and manual frames alike, so fps reflects
// the real cadence either way.
func (s *frameScheduler) noteTick(now time.Time) {
	prev := s.lastTickNanos.Swap(now.UnixNano())
	if prev == 0 {
		return
	}
	dt := now.UnixNano() - prev
	if dt <= 0 {
		return
	}
	s.fpsBits.Store(math.Float64bits(float64(time.Second) / float64(dt)))
}

// fps returns the most recently measured instantaneous frame rate.
// Zero until two ticks have happened.
func (s *frameScheduler) fps() float64 {
	return math.Float64frombits(s.fpsBits.Load())
}

package easel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewFrameSchedulerInterval(t *testing.T) {
	tests := []struct {
		name string
		fps  int
		want time.Duration
	}{
		{"60fps", 60, time.Second / 60},
		{"1fps", 1, time.Second},
		{"zero disables", 0, 0},
		{"negative disables", -30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFrameScheduler(tt.fps)
			if s.interval != tt.want {
				t.Errorf("interval = %v, want %v", s.interval, tt.want)
			}
		})
	}
}

func TestSchedulerTicksAndStops(t *testing.T) {
	s := newFrameScheduler(500)
	var ticks atomic.Int64
	s.start(func(time.Time) { ticks.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler produced no tick within 2s")
		}
		time.Sleep(time.Millisecond)
	}

	s.stop()
	after := ticks.Load()
	// stop is synchronous: once it returns, no further tick may land.
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Errorf("ticks advanced from %d to %d after stop returned", after, got)
	}
}

func TestSchedulerZeroRateNeverRuns(t *testing.T) {
	s := newFrameScheduler(0)
	var ticks atomic.Int64
	s.start(func(time.Time) { ticks.Add(1) })

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		t.Error("scheduler with no target rate should not start")
	}

	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != 0 {
		t.Errorf("got %d ticks from a disabled scheduler", got)
	}
	s.stop()
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := newFrameScheduler(100)

	// Stop before start should be safe.
	s.stop()

	s.start(func(time.Time) {})
	s.stop()
	s.stop()
}

func TestSchedulerStartWhileRunning(t *testing.T) {
	s := newFrameScheduler(500)
	defer s.stop()

	var first, second atomic.Int64
	s.start(func(time.Time) { first.Add(1) })
	// A second start must not replace the callback.
	s.start(func(time.Time) { second.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for first.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler produced no tick within 2s")
		}
		time.Sleep(time.Millisecond)
	}
	if got := second.Load(); got != 0 {
		t.Errorf("second start's callback ran %d times, want 0", got)
	}
}

func TestSchedulerRestart(t *testing.T) {
	s := newFrameScheduler(500)
	var ticks atomic.Int64
	tick := func(time.Time) { ticks.Add(1) }

	s.start(tick)
	s.stop()

	// The scheduler is reusable after stop.
	s.start(tick)
	defer s.stop()

	base := ticks.Load()
	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() == base {
		if time.Now().After(deadline) {
			t.Fatal("restarted scheduler produced no tick within 2s")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNoteTickFPS(t *testing.T) {
	s := newFrameScheduler(0)
	if got := s.fps(); got != 0 {
		t.Fatalf("fps before any tick = %v, want 0", got)
	}

	base := time.Now()
	s.noteTick(base)
	if got := s.fps(); got != 0 {
		t.Errorf("fps after a single tick = %v, want 0", got)
	}

	s.noteTick(base.Add(100 * time.Millisecond))
	if got := s.fps(); got != 10 {
		t.Errorf("fps = %v, want 10", got)
	}

	// Non-advancing timestamps leave the measurement alone.
	s.noteTick(base.Add(100 * time.Millisecond))
	if got := s.fps(); got != 10 {
		t.Errorf("fps after zero-dt tick = %v, want 10", got)
	}
	s.noteTick(base.Add(50 * time.Millisecond))
	if got := s.fps(); got != 10 {
		t.Errorf("fps after backwards tick = %v, want 10", got)
	}
}

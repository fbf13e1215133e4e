package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Coalesces(t *testing.T) {
	var calls atomic.Int32
	d := New(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	if !d.Pending() {
		t.Error("Pending() = false after Trigger")
	}

	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if d.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestDebouncer_QuietPeriodRestarts(t *testing.T) {
	var calls atomic.Int32
	d := New(60*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	time.Sleep(30 * time.Millisecond)
	d.Trigger()
	time.Sleep(40 * time.Millisecond)

	// 70ms after the first trigger but only 40ms after the second.
	if calls.Load() != 0 {
		t.Errorf("calls = %d before the quiet period ended", calls.Load())
	}
	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDebouncer_SpacedTriggers(t *testing.T) {
	var calls atomic.Int32
	d := New(20*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 3; i++ {
		d.Trigger()
		time.Sleep(60 * time.Millisecond)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var calls atomic.Int32
	d := New(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Cancel()
	time.Sleep(60 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var calls atomic.Int32
	d := New(time.Hour, func() { calls.Add(1) })

	d.Flush()
	if calls.Load() != 0 {
		t.Errorf("Flush() with nothing pending ran fn")
	}

	d.Trigger()
	d.Flush()
	if calls.Load() != 1 {
		t.Errorf("calls = %d after Flush, want 1", calls.Load())
	}
	d.Flush()
	if calls.Load() != 1 {
		t.Errorf("second Flush() ran fn again")
	}
}

func TestDebouncer_ZeroDelayIsSynchronous(t *testing.T) {
	var calls atomic.Int32
	d := New(0, func() { calls.Add(1) })

	d.Trigger()
	d.Trigger()
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var calls atomic.Int32
	d := New(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()
	d.Flush()
	time.Sleep(60 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("calls = %d after Stop, want 0", calls.Load())
	}
}

func TestDebouncer_StopWaitsForRunningCall(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	d := New(0, func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})

	go d.Trigger()
	<-started
	d.Stop()
	if !finished.Load() {
		t.Error("Stop() returned while fn was running")
	}
}

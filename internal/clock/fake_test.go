package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var order []string
	f.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	f.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	f.AfterFunc(5*time.Second, func() { order = append(order, "late") })

	f.Advance(3 * time.Second)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("Expected [a b], got %v", order)
	}
	if got := f.Now(); !got.Equal(time.Unix(3, 0)) {
		t.Errorf("Expected now=3s, got %v", got)
	}
	if f.Pending() != 1 {
		t.Errorf("Expected 1 pending timer, got %d", f.Pending())
	}
}

func TestFakeRescheduleInsideCallback(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		f.AfterFunc(time.Second, tick)
	}
	f.AfterFunc(time.Second, tick)

	f.Advance(5 * time.Second)

	if ticks != 5 {
		t.Errorf("Expected 5 ticks, got %d", ticks)
	}
}

func TestFakeStop(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Expected Stop to report a pending timer")
	}
	if timer.Stop() {
		t.Error("Expected second Stop to report false")
	}

	f.Advance(2 * time.Second)
	if fired {
		t.Error("Stopped timer fired")
	}
}

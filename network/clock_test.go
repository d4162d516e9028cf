package network

import (
	"testing"
	"time"
)

func TestServerClockAdvancesWithLocalTime(t *testing.T) {
	var c serverClock
	start := time.Unix(1000, 0)

	if got := c.now(start); got != 0 {
		t.Fatalf("unsynced now = %v, want 0", got)
	}

	c.sync(42, start)
	if got := c.now(start.Add(1500 * time.Millisecond)); got != 43.5 {
		t.Errorf("now = %v, want 43.5", got)
	}
}

func TestServerClockNeverRunsBackwards(t *testing.T) {
	var c serverClock
	start := time.Unix(1000, 0)
	c.sync(100, start)

	later := start.Add(10 * time.Second)
	c.sync(105, later)
	if got := c.now(later); got != 110 {
		t.Errorf("now after stale sync = %v, want 110", got)
	}

	c.sync(200, later)
	if got := c.now(later); got != 200 {
		t.Errorf("now after forward sync = %v, want 200", got)
	}
}

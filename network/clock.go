package network

import "time"

// serverClock estimates the server clock from the time reported in
// JoinAccepted plus local elapsed time. One-way latency is not corrected for,
// so the estimate trails the server slightly.
type serverClock struct {
	base   float64
	at     time.Time
	synced bool
}

// sync anchors the clock. It never moves the estimate backwards, so move
// timestamps stay ordered across reconnects.
func (c *serverClock) sync(serverTime float64, at time.Time) {
	if c.synced && serverTime < c.now(at) {
		return
	}
	c.base = serverTime
	c.at = at
	c.synced = true
}

func (c *serverClock) now(t time.Time) float64 {
	if !c.synced {
		return 0
	}
	return c.base + t.Sub(c.at).Seconds()
}

package messages

import "math"

// Move is a single timestamped input sample, sent from the controlling
// client to the server every tick. Timestamp is on the server clock.
type Move struct {
	Steering  float64 // -1 full left, 1 full right
	Throttle  float64 // -1 full reverse, 1 full forward
	DeltaTime float64 // seconds covered by this move
	Timestamp float64 // seconds, server-clock relative
}

// NewMove builds a Move from a raw input sample.
func NewMove(steering, throttle, dt, timestamp float64) Move {
	return Move{
		Steering:  steering,
		Throttle:  throttle,
		DeltaTime: dt,
		Timestamp: timestamp,
	}
}

// IsValid reports whether steering and throttle lie within [-1, 1] and
// DeltaTime is positive and finite. NaN inputs are never valid.
func (m Move) IsValid() bool {
	return math.Abs(m.Steering) <= 1 && math.Abs(m.Throttle) <= 1 &&
		m.DeltaTime > 0 && !math.IsInf(m.DeltaTime, 1)
}

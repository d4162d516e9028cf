// Package replication keeps a kart consistent across the server and every
// client. A controlling client predicts from local input and reconciles
// against server state, the server validates and applies moves, and remote
// observers smooth between snapshots with a Hermite spline.
//
// Everything here is single-threaded: the host calls into a Component once
// per tick and once per received state, from the same goroutine.
package replication

import (
	"errors"

	"github.com/automoto/kartsync/shared/messages"
	"github.com/go-gl/mathgl/mgl64"
)

// Simulator is the movement model driving one kart. ExecuteMove must be
// deterministic so that replaying recorded moves from the same state lands
// in the same place.
type Simulator interface {
	ExecuteMove(m messages.Move)
	LastMove() messages.Move
	Velocity() mgl64.Vec3
	SetVelocity(v mgl64.Vec3)
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	SetTransform(pos mgl64.Vec3, rot mgl64.Quat)
}

// MoveSender delivers a controller's moves to the server.
type MoveSender interface {
	SendMove(m messages.Move) error
}

// StatePublisher delivers the server's canonical state to every peer.
type StatePublisher interface {
	Publish(s messages.CanonicalState)
}

// VisualNode receives the smoothed pose of a remotely observed kart.
type VisualNode interface {
	SetPosition(pos mgl64.Vec3)
	SetRotation(rot mgl64.Quat)
}

// Clock reports the server time in seconds.
type Clock interface {
	Now() float64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() float64

func (f ClockFunc) Now() float64 { return f() }

var (
	ErrMissingSimulator = errors.New("replication: simulator is required")
	ErrMissingVisual    = errors.New("replication: observer role requires a visual node")
	ErrMissingSender    = errors.New("replication: controller role requires a move sender")
	ErrMissingPublisher = errors.New("replication: authority requires a state publisher")
	ErrMissingClock     = errors.New("replication: authority requires a clock")

	ErrRoleNotConfigured = errors.New("replication: role not configured for this kart")
)

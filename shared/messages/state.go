package messages

import "github.com/go-gl/mathgl/mgl64"

// CanonicalState is the authoritative record for a kart. Only the server
// writes it; every other peer treats it as read-only.
type CanonicalState struct {
	LastMove Move
	Position mgl64.Vec3 // cm
	Rotation mgl64.Quat
	Velocity mgl64.Vec3 // m/s
}

// StateUpdate is broadcast by the server whenever a kart's canonical state
// changes.
type StateUpdate struct {
	KartID uint32
	State  CanonicalState
}

// KartDespawned is broadcast when a kart leaves the arena for good.
type KartDespawned struct {
	KartID uint32
}

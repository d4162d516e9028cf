// Package kartmath holds the pure interpolation math used to smooth remote
// karts between server snapshots.
package kartmath

import (
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// CubicInterp evaluates the cubic Hermite basis between p0 and p1 with
// tangents t0 and t1 at parameter a.
func CubicInterp(p0, t0, p1, t1 mgl64.Vec3, a float64) mgl64.Vec3 {
	a2 := a * a
	a3 := a2 * a

	h00 := 2*a3 - 3*a2 + 1
	h10 := a3 - 2*a2 + a
	h01 := -2*a3 + 3*a2
	h11 := a3 - a2

	return p0.Mul(h00).Add(t0.Mul(h10)).Add(p1.Mul(h01)).Add(t1.Mul(h11))
}

// CubicInterpDerivative evaluates the first derivative of the same segment
// with respect to a.
func CubicInterpDerivative(p0, t0, p1, t1 mgl64.Vec3, a float64) mgl64.Vec3 {
	a2 := a * a

	d00 := 6*a2 - 6*a
	d10 := 3*a2 - 4*a + 1
	d01 := -6*a2 + 6*a
	d11 := 3*a2 - 2*a

	return p0.Mul(d00).Add(t0.Mul(d10)).Add(p1.Mul(d01)).Add(t1.Mul(d11))
}

// Hermite is one interpolation span between two kart states. It is rebuilt
// every observer tick and never stored.
type Hermite struct {
	StartLocation    mgl64.Vec3
	StartDerivative  mgl64.Vec3
	TargetLocation   mgl64.Vec3
	TargetDerivative mgl64.Vec3

	// Ratio is elapsed/interval. It is not clamped, so values past 1 overshoot.
	Ratio float64
	// VelocityToDerivative converts a velocity into a spline tangent.
	VelocityToDerivative float64
}

// NewHermite builds a span from start and target position/velocity pairs.
// interval is the time between the last two snapshots in seconds.
func NewHermite(startPos, startVel, targetPos, targetVel mgl64.Vec3, elapsed, interval float64) Hermite {
	k := interval * netconfig.UnitScale
	return Hermite{
		StartLocation:        startPos,
		StartDerivative:      startVel.Mul(k),
		TargetLocation:       targetPos,
		TargetDerivative:     targetVel.Mul(k),
		Ratio:                elapsed / interval,
		VelocityToDerivative: k,
	}
}

// Location returns the interpolated position at Ratio.
func (h Hermite) Location() mgl64.Vec3 {
	return CubicInterp(h.StartLocation, h.StartDerivative, h.TargetLocation, h.TargetDerivative, h.Ratio)
}

// Derivative returns the spline tangent at Ratio.
func (h Hermite) Derivative() mgl64.Vec3 {
	return CubicInterpDerivative(h.StartLocation, h.StartDerivative, h.TargetLocation, h.TargetDerivative, h.Ratio)
}

// Velocity converts the tangent at Ratio back into simulator velocity units.
func (h Hermite) Velocity() mgl64.Vec3 {
	return h.Derivative().Mul(1 / h.VelocityToDerivative)
}

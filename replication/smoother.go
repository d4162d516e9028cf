package replication

import (
	"github.com/automoto/kartsync/shared/kartmath"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// Smoother renders a remotely observed kart between snapshots. Each new
// snapshot starts a Hermite span from wherever the kart is drawn now to the
// snapshot, stretched over the time the previous snapshot took to arrive.
type Smoother struct {
	sim    Simulator
	visual VisualNode

	target    messages.CanonicalState
	hasTarget bool

	startPosition mgl64.Vec3
	startRotation mgl64.Quat
	startVelocity mgl64.Vec3

	renderedPosition mgl64.Vec3
	renderedRotation mgl64.Quat
	rendered         bool

	timeSinceSnapshot float64
	interval          float64
}

func NewSmoother(sim Simulator, visual VisualNode) (*Smoother, error) {
	if sim == nil {
		return nil, ErrMissingSimulator
	}
	if visual == nil {
		return nil, ErrMissingVisual
	}
	return &Smoother{sim: sim, visual: visual}, nil
}

// OnSnapshot starts a new span toward s. The simulator body snaps to s so
// collision sees server truth while the visual node keeps the smoothed pose.
func (sm *Smoother) OnSnapshot(s messages.CanonicalState) {
	sm.interval = sm.timeSinceSnapshot
	sm.timeSinceSnapshot = 0

	if sm.rendered {
		sm.startPosition = sm.renderedPosition
		sm.startRotation = sm.renderedRotation
	} else {
		sm.startPosition = sm.sim.Position()
		sm.startRotation = sm.sim.Rotation()
	}
	sm.startVelocity = sm.sim.Velocity()

	sm.target = s
	sm.hasTarget = true
	sm.sim.SetTransform(s.Position, s.Rotation)
}

// Tick advances the span by dt and writes the interpolated pose. Nothing is
// written while the span interval is too small to divide by.
func (sm *Smoother) Tick(dt float64) {
	sm.timeSinceSnapshot += dt
	if !sm.hasTarget || sm.interval < netconfig.InterpolationEpsilon {
		return
	}

	span := sm.Span()
	pos := span.Location()
	rot := kartmath.Slerp(sm.startRotation, sm.target.Rotation, span.Ratio)

	sm.visual.SetPosition(pos)
	sm.visual.SetRotation(rot)
	sm.sim.SetVelocity(span.Velocity())

	sm.renderedPosition = pos
	sm.renderedRotation = rot
	sm.rendered = true
}

// Span builds the current interpolation span. It is only meaningful once
// Interval is non-zero.
func (sm *Smoother) Span() kartmath.Hermite {
	return kartmath.NewHermite(
		sm.startPosition, sm.startVelocity,
		sm.target.Position, sm.target.Velocity,
		sm.timeSinceSnapshot, sm.interval)
}

// TimeSinceSnapshot is the local time since the last snapshot arrived.
func (sm *Smoother) TimeSinceSnapshot() float64 { return sm.timeSinceSnapshot }

// Interval is the local time between the last two snapshots.
func (sm *Smoother) Interval() float64 { return sm.interval }

package kartsim

import (
	"math"

	"github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

// minSweep is the smallest per-axis move checked against walls (cm).
const minSweep = 1e-6

var (
	up      = mgl64.Vec3{0, 1, 0}
	forward = mgl64.Vec3{1, 0, 0}
)

// Kart simulates one kart. Positions are in cm, velocity in m/s. It is not
// safe for concurrent use.
type Kart struct {
	cfg config.KartConfig

	position mgl64.Vec3
	rotation mgl64.Quat
	velocity mgl64.Vec3
	lastMove messages.Move

	arena  *Arena
	object *resolv.Object
}

// New creates a kart at the given transform. arena may be nil, in which case
// the kart moves without collision.
func New(cfg config.KartConfig, arena *Arena, pos mgl64.Vec3, rot mgl64.Quat) *Kart {
	k := &Kart{
		cfg:      cfg,
		position: pos,
		rotation: rot.Normalize(),
		arena:    arena,
	}

	if arena != nil {
		k.object = resolv.NewObject(pos.X()-cfg.CollisionWidth/2, pos.Z()-cfg.CollisionDepth/2,
			cfg.CollisionWidth, cfg.CollisionDepth, TagKart)
		k.object.SetShape(resolv.NewRectangle(0, 0, cfg.CollisionWidth, cfg.CollisionDepth))
		arena.Space.Add(k.object)
	}

	return k
}

// Remove takes the kart's collision object out of the arena.
func (k *Kart) Remove() {
	if k.arena != nil && k.object != nil {
		k.arena.Space.Remove(k.object)
		k.object = nil
	}
}

// Drive builds a move from a raw input sample, executes it and returns it.
func (k *Kart) Drive(steering, throttle, dt, timestamp float64) messages.Move {
	m := messages.NewMove(steering, throttle, dt, timestamp)
	k.ExecuteMove(m)
	return m
}

// ExecuteMove advances the kart by one move. The result depends only on the
// kart's prior state and the move, so replaying a recorded sequence from the
// same starting state always lands in the same place.
func (k *Kart) ExecuteMove(m messages.Move) {
	heading := k.rotation.Rotate(forward)

	force := heading.Mul(k.cfg.MaxDrivingForce * m.Throttle)
	force = force.Add(k.airResistance())
	force = force.Add(k.rollingResistance())

	accel := force.Mul(1 / k.cfg.Mass)
	k.velocity = k.velocity.Add(accel.Mul(m.DeltaTime))

	k.applyRotation(heading, m.DeltaTime, m.Steering)
	k.applyTranslation(m.DeltaTime)

	k.lastMove = m
}

func (k *Kart) airResistance() mgl64.Vec3 {
	// -v̂ * |v|^2 * drag, written without normalizing a possibly zero vector
	return k.velocity.Mul(-k.velocity.Len() * k.cfg.DragCoefficient)
}

func (k *Kart) rollingResistance() mgl64.Vec3 {
	speed := k.velocity.Len()
	if speed == 0 {
		return mgl64.Vec3{}
	}
	normalForce := k.cfg.Mass * k.cfg.Gravity
	return k.velocity.Mul(-k.cfg.RollingResistanceCoefficient * normalForce / speed)
}

func (k *Kart) applyRotation(heading mgl64.Vec3, dt, steering float64) {
	deltaLocation := heading.Dot(k.velocity) * dt
	angle := deltaLocation / k.cfg.MinTurningRadius * steering
	if angle == 0 {
		return
	}

	delta := mgl64.QuatRotate(angle, up)
	k.velocity = delta.Rotate(k.velocity)
	k.rotation = delta.Mul(k.rotation).Normalize()
}

func (k *Kart) applyTranslation(dt float64) {
	translation := k.velocity.Mul(netconfig.UnitScale * dt)
	dx, dz := translation.X(), translation.Z()

	if k.object != nil {
		// Resolve one axis at a time so contact offsets stay on the moving axis
		var hitX, hitZ bool
		dx, hitX = k.sweep(dx, 0)
		k.object.X += dx
		k.object.Update()
		dz, hitZ = k.sweep(0, dz)
		if hitX || hitZ {
			k.velocity = mgl64.Vec3{}
		}
	}

	k.position = k.position.Add(mgl64.Vec3{dx, 0, dz})
	k.syncObject()
}

// sweep clamps a single-axis move against arena walls and reports whether a
// wall was hit.
func (k *Kart) sweep(dx, dz float64) (float64, bool) {
	d := dx + dz
	if math.Abs(d) < minSweep {
		return 0, false
	}

	check := k.object.Check(dx, dz, TagWall)
	if check == nil {
		return d, false
	}

	hit := false
	for _, wall := range check.ObjectsByTags(TagWall) {
		contact := check.ContactWithObject(wall)
		c := contact.X()
		if dz != 0 {
			c = contact.Y()
		}
		// resolv checks by cell, so a wall may be reported before it is reached
		if (d < 0 && c > d) || (d > 0 && c < d) {
			d = c
			hit = true
		}
	}
	return d, hit
}

func (k *Kart) syncObject() {
	if k.object == nil {
		return
	}
	k.object.X = k.position.X() - k.cfg.CollisionWidth/2
	k.object.Y = k.position.Z() - k.cfg.CollisionDepth/2
	k.object.Update()
}

// LastMove returns the most recently executed move.
func (k *Kart) LastMove() messages.Move { return k.lastMove }

// Velocity returns the kart's velocity in m/s.
func (k *Kart) Velocity() mgl64.Vec3 { return k.velocity }

// SetVelocity overrides the kart's velocity. Only reconciliation and
// interpolation use it.
func (k *Kart) SetVelocity(v mgl64.Vec3) { k.velocity = v }

// Position returns the kart's position in cm.
func (k *Kart) Position() mgl64.Vec3 { return k.position }

// Rotation returns the kart's heading.
func (k *Kart) Rotation() mgl64.Quat { return k.rotation }

// SetTransform teleports the kart.
func (k *Kart) SetTransform(pos mgl64.Vec3, rot mgl64.Quat) {
	k.position = pos
	k.rotation = rot.Normalize()
	k.syncObject()
}

// Speed returns the kart's speed in m/s.
func (k *Kart) Speed() float64 { return k.velocity.Len() }

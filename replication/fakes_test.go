package replication

import (
	"errors"

	"github.com/automoto/kartsync/shared/messages"
	"github.com/go-gl/mathgl/mgl64"
)

// recordingSim moves one unit along X per unit of throttle*dt and records
// every executed move.
type recordingSim struct {
	position mgl64.Vec3
	rotation mgl64.Quat
	velocity mgl64.Vec3
	last     messages.Move
	executed []messages.Move
}

func newRecordingSim() *recordingSim {
	return &recordingSim{rotation: mgl64.QuatIdent()}
}

func (s *recordingSim) ExecuteMove(m messages.Move) {
	s.velocity = s.velocity.Add(mgl64.Vec3{m.Throttle * m.DeltaTime, 0, 0})
	s.position = s.position.Add(s.velocity.Mul(100 * m.DeltaTime))
	s.last = m
	s.executed = append(s.executed, m)
}

func (s *recordingSim) LastMove() messages.Move                 { return s.last }
func (s *recordingSim) Velocity() mgl64.Vec3                    { return s.velocity }
func (s *recordingSim) SetVelocity(v mgl64.Vec3)                { s.velocity = v }
func (s *recordingSim) Position() mgl64.Vec3                    { return s.position }
func (s *recordingSim) Rotation() mgl64.Quat                    { return s.rotation }
func (s *recordingSim) SetTransform(p mgl64.Vec3, r mgl64.Quat) { s.position, s.rotation = p, r }

type recordingSender struct {
	sent []messages.Move
	err  error
}

func (s *recordingSender) SendMove(m messages.Move) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

type recordingPublisher struct {
	published []messages.CanonicalState
}

func (p *recordingPublisher) Publish(s messages.CanonicalState) {
	p.published = append(p.published, s)
}

type recordingVisual struct {
	positions []mgl64.Vec3
	rotations []mgl64.Quat
}

func (v *recordingVisual) SetPosition(p mgl64.Vec3) { v.positions = append(v.positions, p) }
func (v *recordingVisual) SetRotation(r mgl64.Quat) { v.rotations = append(v.rotations, r) }

func (v *recordingVisual) lastPosition() mgl64.Vec3 { return v.positions[len(v.positions)-1] }
func (v *recordingVisual) lastRotation() mgl64.Quat { return v.rotations[len(v.rotations)-1] }

type fixedClock struct {
	now float64
}

func (c *fixedClock) Now() float64 { return c.now }

var errSendFailed = errors.New("connection closed")

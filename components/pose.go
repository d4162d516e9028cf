package components

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// Pose is where a kart is drawn. For observed karts it trails the simulator
// body, which snaps to each server snapshot.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func NewPose(pos mgl64.Vec3, rot mgl64.Quat) *Pose {
	return &Pose{Position: pos, Rotation: rot}
}

func (p *Pose) SetPosition(pos mgl64.Vec3) { p.Position = pos }
func (p *Pose) SetRotation(rot mgl64.Quat) { p.Rotation = rot }

type PoseData struct {
	*Pose
}

var Visual = donburi.NewComponentType[PoseData]()

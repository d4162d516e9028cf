// Package kartsim is the kart movement simulator. It turns timestamped moves
// into position, rotation and velocity deterministically so that a client can
// replay unacknowledged moves and land where the server would.
package kartsim

import (
	"math"

	"github.com/automoto/kartsync/shared/leveldata"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

// Resolv tags for arena collision
const (
	TagWall = "wall"
	TagKart = "kart"
)

const arenaCellSize = 100

// Arena holds the collision space and spawn data for one arena.
type Arena struct {
	Space  *resolv.Space
	Spawns []leveldata.SpawnPoint
	Width  int
	Depth  int
}

// NewArena builds a resolv.Space from parsed arena data.
func NewArena(data *leveldata.ArenaData) *Arena {
	space := resolv.NewSpace(data.Width, data.Depth, arenaCellSize, arenaCellSize)

	for _, w := range data.Walls {
		obj := resolv.NewObject(w.X, w.Z, w.W, w.D, TagWall)
		obj.SetShape(resolv.NewRectangle(0, 0, w.W, w.D))
		space.Add(obj)
	}

	return &Arena{
		Space:  space,
		Spawns: data.Spawns,
		Width:  data.Width,
		Depth:  data.Depth,
	}
}

// Spawn returns the transform of spawn slot i, wrapping around when there
// are more karts than spawn points.
func (a *Arena) Spawn(i int) (mgl64.Vec3, mgl64.Quat) {
	if len(a.Spawns) == 0 {
		return mgl64.Vec3{}, mgl64.QuatIdent()
	}
	s := a.Spawns[i%len(a.Spawns)]
	return mgl64.Vec3{s.X, 0, s.Z}, Heading(float64(s.Heading))
}

// Heading returns a yaw rotation about +Y for the given angle in degrees.
func Heading(degrees float64) mgl64.Quat {
	return mgl64.QuatRotate(degrees*math.Pi/180, up)
}

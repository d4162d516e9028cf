package factory

import (
	"github.com/automoto/kartsync/archetypes"
	"github.com/automoto/kartsync/components"
	cfg "github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/input"
	"github.com/automoto/kartsync/replication"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// KartSpec describes a kart to spawn. Which fields are needed depends on
// Role.
type KartSpec struct {
	ID       uint32
	Name     string
	Role     netconfig.Role
	Position mgl64.Vec3
	Rotation mgl64.Quat

	Driver    *input.Driver // controller and authority
	Sender    replication.MoveSender
	Publisher replication.StatePublisher
	Clock     replication.Clock
	StartTime float64

	Logger *log.Logger
}

// CreateKart builds the simulator and replication state for spec and spawns
// the entity. Nothing is spawned when the replication wiring is incomplete.
func CreateKart(ecs *ecs.ECS, arena *kartsim.Arena, spec KartSpec) (*donburi.Entry, error) {
	sim := kartsim.New(cfg.Kart, arena, spec.Position, spec.Rotation)
	pose := components.NewPose(sim.Position(), sim.Rotation())

	rep, err := replication.New(replication.Config{
		Simulator:         sim,
		Visual:            pose,
		Sender:            spec.Sender,
		Publisher:         spec.Publisher,
		Clock:             spec.Clock,
		Roles:             []netconfig.Role{spec.Role},
		RunAheadTolerance: cfg.Net.RunAheadTolerance,
		StartTime:         spec.StartTime,
		MaxPendingMoves:   cfg.Net.MaxPendingMoves,
		Logger:            spec.Logger,
	})
	if err != nil {
		sim.Remove()
		return nil, err
	}

	local := spec.Driver != nil &&
		(spec.Role == netconfig.RoleController || spec.Role == netconfig.RoleAuthority)

	var kart *donburi.Entry
	if local {
		kart = archetypes.LocalKart.Spawn(ecs)
		components.Driver.SetValue(kart, components.DriverData{Driver: spec.Driver})
	} else {
		kart = archetypes.Kart.Spawn(ecs)
	}

	components.Kart.SetValue(kart, components.KartData{
		ID:          spec.ID,
		Name:        spec.Name,
		Role:        spec.Role,
		Sim:         sim,
		Replication: rep,
	})
	components.Visual.SetValue(kart, components.PoseData{Pose: pose})

	return kart, nil
}

// SpecFromState fills a spec's transform from a received canonical state.
func SpecFromState(spec KartSpec, s messages.CanonicalState) KartSpec {
	spec.Position = s.Position
	spec.Rotation = s.Rotation
	return spec
}

// RemoveKart takes a kart out of its arena and the world.
func RemoveKart(ecs *ecs.ECS, kart *donburi.Entry) {
	if !kart.Valid() {
		return
	}
	components.Kart.Get(kart).Sim.Remove()
	ecs.World.Remove(kart.Entity())
}

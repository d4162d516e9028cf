package systems

import (
	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/automoto/kartsync/tags"
	"github.com/charmbracelet/log"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/filter"
)

// NewReplicationSystem returns an ECS system that dispatches every kart's
// replication tick with this peer's role for it, then copies the simulator
// pose to the visual pose of karts that are not smoothed.
func NewReplicationSystem(dt float64, logger *log.Logger) func(*ecs.ECS) {
	query := donburi.NewQuery(filter.Contains(tags.Kart, components.Kart, components.Visual))

	return func(e *ecs.ECS) {
		query.Each(e.World, func(entry *donburi.Entry) {
			kart := components.Kart.Get(entry)

			if err := kart.Replication.Tick(kart.Role, dt); err != nil {
				logger.Warn("replication tick failed", "kart", kart.ID, "role", kart.Role, "err", err)
			}

			if kart.Role != netconfig.RoleObserver {
				pose := components.Visual.Get(entry)
				pose.SetPosition(kart.Sim.Position())
				pose.SetRotation(kart.Sim.Rotation())
			}
		})
	}
}

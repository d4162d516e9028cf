package systems

import (
	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/filter"
)

// NewInputSystem returns an ECS system that samples each local kart's driver
// and executes the resulting move on its simulator. now supplies the move
// timestamp on the server clock.
// Must run AFTER the snapshot system and BEFORE the replication system.
func NewInputSystem(dt float64, now func() float64) func(*ecs.ECS) {
	query := donburi.NewQuery(filter.Contains(tags.LocalKart, components.Kart, components.Driver))

	return func(e *ecs.ECS) {
		timestamp := now()
		query.Each(e.World, func(entry *donburi.Entry) {
			driver := components.Driver.Get(entry)
			kart := components.Kart.Get(entry)

			steering, throttle := driver.Sample(dt)
			kart.Sim.Drive(steering, throttle, dt, timestamp)
		})
	}
}

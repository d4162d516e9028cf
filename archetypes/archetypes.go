package archetypes

import (
	"github.com/automoto/kartsync/components"
	cfg "github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

var (
	Kart = newArchetype(
		tags.Kart,
		components.Kart,
		components.Visual,
	)
	LocalKart = newArchetype(
		tags.Kart,
		tags.LocalKart,
		components.Kart,
		components.Visual,
		components.Driver,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(ecs *ecs.ECS, cs ...donburi.IComponentType) *donburi.Entry {
	e := ecs.World.Entry(ecs.Create(
		cfg.Default,
		append(a.components, cs...)...,
	))
	return e
}

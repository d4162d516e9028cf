package systems

import (
	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/automoto/kartsync/systems/factory"
	"github.com/charmbracelet/log"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// StateSource is the client's view of the server's replication stream.
type StateSource interface {
	// KartID is the kart this client drives, zero before joining.
	KartID() uint32
	DrainStates() []messages.StateUpdate
	DrainDespawns() []uint32
}

// Snapshot applies received server state to the client world. Karts are
// spawned the first time their state arrives: the local kart as controller,
// every other kart as observer.
// Must run FIRST in the client tick.
type Snapshot struct {
	source StateSource
	arena  *kartsim.Arena
	local  factory.KartSpec // template for the local kart
	logger *log.Logger

	karts  map[uint32]donburi.Entity
	broken map[uint32]bool
}

// NewSnapshot creates the snapshot system. local carries the driver and move
// sender for the local kart; its ID and transform are filled in on spawn.
func NewSnapshot(source StateSource, arena *kartsim.Arena, local factory.KartSpec, logger *log.Logger) *Snapshot {
	return &Snapshot{
		source: source,
		arena:  arena,
		local:  local,
		logger: logger,
		karts:  make(map[uint32]donburi.Entity),
		broken: make(map[uint32]bool),
	}
}

func (s *Snapshot) Update(e *ecs.ECS) {
	for _, update := range s.source.DrainStates() {
		s.apply(e, update)
	}

	for _, id := range s.source.DrainDespawns() {
		s.despawn(e, id)
	}
}

func (s *Snapshot) apply(e *ecs.ECS, update messages.StateUpdate) {
	if s.broken[update.KartID] {
		return
	}

	entry, ok := s.entry(e, update.KartID)
	if !ok {
		var err error
		entry, err = s.spawn(e, update)
		if err != nil {
			// The kart stops updating; the rest of the world carries on
			s.logger.Error("could not spawn kart", "kart", update.KartID, "err", err)
			s.broken[update.KartID] = true
			return
		}
	}

	kart := components.Kart.Get(entry)
	kart.Replication.OnCanonicalState(kart.Role, update.State)
}

func (s *Snapshot) spawn(e *ecs.ECS, update messages.StateUpdate) (*donburi.Entry, error) {
	spec := factory.KartSpec{
		ID:     update.KartID,
		Role:   netconfig.RoleObserver,
		Logger: s.logger,
	}
	if update.KartID == s.source.KartID() {
		spec = s.local
		spec.ID = update.KartID
		spec.Role = netconfig.RoleController
	}

	entry, err := factory.CreateKart(e, s.arena, factory.SpecFromState(spec, update.State))
	if err != nil {
		return nil, err
	}
	s.karts[update.KartID] = entry.Entity()

	s.logger.Info("kart spawned", "kart", update.KartID, "role", spec.Role)
	return entry, nil
}

func (s *Snapshot) despawn(e *ecs.ECS, id uint32) {
	delete(s.broken, id)

	entry, ok := s.entry(e, id)
	if !ok {
		return
	}
	factory.RemoveKart(e, entry)
	delete(s.karts, id)

	s.logger.Info("kart despawned", "kart", id)
}

func (s *Snapshot) entry(e *ecs.ECS, id uint32) (*donburi.Entry, bool) {
	entity, ok := s.karts[id]
	if !ok {
		return nil, false
	}
	if !e.World.Valid(entity) {
		delete(s.karts, id)
		return nil, false
	}
	return e.World.Entry(entity), true
}

// Count returns the number of karts currently in the world.
func (s *Snapshot) Count() int {
	return len(s.karts)
}

// Kart returns the entry for a kart by ID.
func (s *Snapshot) Kart(e *ecs.ECS, id uint32) (*donburi.Entry, bool) {
	return s.entry(e, id)
}

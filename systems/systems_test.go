package systems

import (
	"io"
	"testing"

	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/input"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/automoto/kartsync/systems/factory"
	"github.com/automoto/kartsync/tags"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

const dt = 1.0 / 30

type fakeSource struct {
	kartID   uint32
	states   []messages.StateUpdate
	despawns []uint32
}

func (f *fakeSource) KartID() uint32 { return f.kartID }

func (f *fakeSource) DrainStates() []messages.StateUpdate {
	out := f.states
	f.states = nil
	return out
}

func (f *fakeSource) DrainDespawns() []uint32 {
	out := f.despawns
	f.despawns = nil
	return out
}

type fakeSender struct {
	sent []messages.Move
}

func (f *fakeSender) SendMove(m messages.Move) error {
	f.sent = append(f.sent, m)
	return nil
}

func stateAt(id uint32, x float64) messages.StateUpdate {
	return messages.StateUpdate{
		KartID: id,
		State: messages.CanonicalState{
			Position: mgl64.Vec3{x, 0, 600},
			Rotation: mgl64.QuatIdent(),
		},
	}
}

func newClientWorld(t *testing.T, source *fakeSource, sender *fakeSender) (*ecs.ECS, *Snapshot) {
	t.Helper()
	driver, err := input.NewDriver("straight")
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	logger := log.New(io.Discard)
	local := factory.KartSpec{Driver: driver, Logger: logger}
	if sender != nil {
		local.Sender = sender
	}

	e := ecs.NewECS(donburi.NewWorld())
	snap := NewSnapshot(source, nil, local, logger)
	now := 0.0
	e.AddSystem(snap.Update)
	e.AddSystem(NewInputSystem(dt, func() float64 { now += dt; return now }))
	e.AddSystem(NewReplicationSystem(dt, logger))
	return e, snap
}

func TestSnapshotSpawnsByOwnership(t *testing.T) {
	source := &fakeSource{kartID: 1}
	e, snap := newClientWorld(t, source, &fakeSender{})

	source.states = []messages.StateUpdate{stateAt(1, 600), stateAt(2, 2000)}
	snap.Update(e)

	if snap.Count() != 2 {
		t.Fatalf("Count = %d, want 2", snap.Count())
	}

	local, ok := snap.Kart(e, 1)
	if !ok {
		t.Fatal("local kart missing")
	}
	if role := components.Kart.Get(local).Role; role != netconfig.RoleController {
		t.Errorf("local role = %v, want controller", role)
	}
	if !local.HasComponent(tags.LocalKart) || !local.HasComponent(components.Driver) {
		t.Errorf("local kart is not driven")
	}

	remote, _ := snap.Kart(e, 2)
	if role := components.Kart.Get(remote).Role; role != netconfig.RoleObserver {
		t.Errorf("remote role = %v, want observer", role)
	}
	if remote.HasComponent(tags.LocalKart) {
		t.Errorf("remote kart tagged local")
	}
}

func TestSnapshotDespawn(t *testing.T) {
	source := &fakeSource{kartID: 1}
	e, snap := newClientWorld(t, source, &fakeSender{})

	source.states = []messages.StateUpdate{stateAt(2, 2000)}
	snap.Update(e)
	entry, _ := snap.Kart(e, 2)
	entity := entry.Entity()

	source.despawns = []uint32{2}
	snap.Update(e)

	if snap.Count() != 0 {
		t.Errorf("Count = %d, want 0", snap.Count())
	}
	if e.World.Valid(entity) {
		t.Errorf("despawned kart still in world")
	}
}

func TestClientTickPredictsAndSends(t *testing.T) {
	source := &fakeSource{kartID: 1}
	sender := &fakeSender{}
	e, snap := newClientWorld(t, source, sender)

	source.states = []messages.StateUpdate{stateAt(1, 600)}
	for i := 0; i < 3; i++ {
		e.Update()
	}

	if len(sender.sent) != 3 {
		t.Fatalf("sent %d moves, want 3", len(sender.sent))
	}
	for i := 1; i < len(sender.sent); i++ {
		if sender.sent[i].Timestamp <= sender.sent[i-1].Timestamp {
			t.Errorf("timestamps not increasing: %+v", sender.sent)
		}
	}

	entry, _ := snap.Kart(e, 1)
	kart := components.Kart.Get(entry)
	if kart.Replication.Pending() != 3 {
		t.Errorf("Pending = %d, want 3", kart.Replication.Pending())
	}
	pose := components.Visual.Get(entry)
	if pose.Position != kart.Sim.Position() {
		t.Errorf("pose %v does not follow predicted position %v", pose.Position, kart.Sim.Position())
	}
	if pose.Position.X() <= 600 {
		t.Errorf("local kart did not move: %v", pose.Position)
	}
}

func TestObserverPoseIsSmoothed(t *testing.T) {
	source := &fakeSource{kartID: 1}
	e, snap := newClientWorld(t, source, &fakeSender{})

	source.states = []messages.StateUpdate{stateAt(2, 2000)}
	e.Update()
	e.Update()
	source.states = []messages.StateUpdate{stateAt(2, 2100)}
	e.Update()

	entry, _ := snap.Kart(e, 2)
	kart := components.Kart.Get(entry)
	pose := components.Visual.Get(entry)

	// The body snapped to the new snapshot, the drawn pose is still on the way
	if kart.Sim.Position().X() != 2100 {
		t.Errorf("simulator body at %v, want snapped to x=2100", kart.Sim.Position())
	}
	if x := pose.Position.X(); x <= 2000 || x >= 2100 {
		t.Errorf("pose x = %v, want between the two snapshots", x)
	}
}

func TestSnapshotSkipsKartWithBrokenWiring(t *testing.T) {
	source := &fakeSource{kartID: 1}
	e, snap := newClientWorld(t, source, nil)

	source.states = []messages.StateUpdate{stateAt(1, 600), stateAt(2, 2000), stateAt(1, 650)}
	e.Update()

	if _, ok := snap.Kart(e, 1); ok {
		t.Errorf("local kart spawned without a move sender")
	}
	if _, ok := snap.Kart(e, 2); !ok {
		t.Errorf("observed kart missing")
	}
}

package core

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/charmbracelet/log"
)

type fakePeer struct {
	id string

	mu   sync.Mutex
	sent []any
}

func (p *fakePeer) Id() string { return p.id }

func (p *fakePeer) SendMessage(msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func received[T any](p *fakePeer) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []T
	for _, msg := range p.sent {
		if v, ok := msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type manualClock struct {
	now float64
}

func (c *manualClock) Now() float64 { return c.now }

func testServerConfig() config.ServerConfig {
	cfg := config.Server
	cfg.TokenSecret = "test-secret"
	cfg.MoveRate = 0
	return cfg
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *manualClock) {
	t.Helper()
	arena, err := kartsim.LoadArena("", "arena", nil)
	if err != nil {
		t.Fatalf("LoadArena: %v", err)
	}
	s, err := NewServer(cfg, 30, arena, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	clock := &manualClock{}
	s.clock = clock
	return s, clock
}

func joinPeer(s *Server, id string, req messages.JoinRequest) *fakePeer {
	p := &fakePeer{id: id}
	s.onConnect(p)
	s.enqueue(joinCommand{peer: p, req: req})
	s.loop.tick()
	return p
}

func TestJoinAccepted(t *testing.T) {
	s, _ := newTestServer(t, testServerConfig())

	p := joinPeer(s, "a", messages.JoinRequest{PlayerName: "alice"})

	accepted := received[messages.JoinAccepted](p)
	if len(accepted) != 1 {
		t.Fatalf("JoinAccepted count = %d, want 1", len(accepted))
	}
	if accepted[0].KartID == 0 || accepted[0].ReconnectToken == "" {
		t.Errorf("JoinAccepted = %+v, want kart and token", accepted[0])
	}
	if accepted[0].TickRate != 30 {
		t.Errorf("TickRate = %d, want 30", accepted[0].TickRate)
	}

	states := received[messages.StateUpdate](p)
	if len(states) != 1 || states[0].KartID != accepted[0].KartID {
		t.Fatalf("states = %+v, want the new kart's initial state", states)
	}
	if s.KartCount() != 1 || s.PlayerCount() != 1 {
		t.Errorf("karts=%d players=%d, want 1 and 1", s.KartCount(), s.PlayerCount())
	}
}

func TestJoinSeesExistingKarts(t *testing.T) {
	s, _ := newTestServer(t, testServerConfig())

	a := joinPeer(s, "a", messages.JoinRequest{})
	b := joinPeer(s, "b", messages.JoinRequest{})

	if n := len(received[messages.StateUpdate](b)); n != 2 {
		t.Errorf("second peer got %d states, want 2", n)
	}
	// The first peer learns about the second kart
	if n := len(received[messages.StateUpdate](a)); n != 2 {
		t.Errorf("first peer got %d states, want 2", n)
	}
}

func TestJoinRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ServerConfig)
		req    messages.JoinRequest
		reason string
	}{
		{
			name:   "version mismatch",
			mutate: func(c *config.ServerConfig) { c.Version = "kartsync/2" },
			req:    messages.JoinRequest{Version: "kartsync/1"},
			reason: RejectVersion,
		},
		{
			name:   "full",
			mutate: func(c *config.ServerConfig) { c.MaxKarts = 0 },
			reason: RejectFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			tt.mutate(&cfg)
			s, _ := newTestServer(t, cfg)

			p := joinPeer(s, "a", tt.req)

			rejected := received[messages.JoinRejected](p)
			if len(rejected) != 1 || rejected[0].Reason != tt.reason {
				t.Fatalf("rejections = %+v, want %q", rejected, tt.reason)
			}
			if s.KartCount() != 0 {
				t.Errorf("KartCount = %d, want 0", s.KartCount())
			}
		})
	}
}

func TestAcceptedMoveIsBroadcast(t *testing.T) {
	s, clock := newTestServer(t, testServerConfig())
	a := joinPeer(s, "a", messages.JoinRequest{})
	b := joinPeer(s, "b", messages.JoinRequest{})
	kartID := received[messages.JoinAccepted](a)[0].KartID
	before := len(received[messages.StateUpdate](b))

	clock.now = 1
	move := messages.NewMove(0, 1, 0.1, 0.1)
	s.onMove(a, move)
	s.loop.tick()

	states := received[messages.StateUpdate](b)
	if len(states) != before+1 {
		t.Fatalf("second peer got %d new states, want 1", len(states)-before)
	}
	last := states[len(states)-1]
	if last.KartID != kartID || last.State.LastMove != move {
		t.Errorf("broadcast %+v, want kart %d acknowledging %+v", last, kartID, move)
	}
}

func TestRejectedMoveIsNotBroadcast(t *testing.T) {
	s, clock := newTestServer(t, testServerConfig())
	a := joinPeer(s, "a", messages.JoinRequest{})
	before := len(received[messages.StateUpdate](a))

	clock.now = 0.05
	s.onMove(a, messages.NewMove(0, 1, 0.1, 0.1))  // running ahead
	s.onMove(a, messages.NewMove(5, 1, 0.01, 0.1)) // malformed
	s.loop.tick()

	if n := len(received[messages.StateUpdate](a)); n != before {
		t.Errorf("got %d new states, want none", n-before)
	}
}

func TestMoveRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.MoveRate = 1
	cfg.MoveBurst = 1
	s, clock := newTestServer(t, cfg)
	a := joinPeer(s, "a", messages.JoinRequest{})
	before := len(received[messages.StateUpdate](a))

	clock.now = 10
	s.onMove(a, messages.NewMove(0, 1, 0.1, 0.1))
	s.onMove(a, messages.NewMove(0, 1, 0.1, 0.2))
	s.loop.tick()

	if n := len(received[messages.StateUpdate](a)); n != before+1 {
		t.Errorf("got %d new states, want 1", n-before)
	}
}

func TestMoveBeforeJoinIgnored(t *testing.T) {
	s, _ := newTestServer(t, testServerConfig())
	p := &fakePeer{id: "a"}
	s.onConnect(p)

	s.onMove(p, messages.NewMove(0, 1, 0.1, 0.1))
	s.loop.tick()

	if len(p.sent) != 0 {
		t.Errorf("unjoined peer received %v", p.sent)
	}
}

func TestDetachedKartDespawnsAfterGrace(t *testing.T) {
	cfg := testServerConfig()
	cfg.ReconnectGrace = 10 * time.Second
	s, clock := newTestServer(t, cfg)
	a := joinPeer(s, "a", messages.JoinRequest{})
	b := joinPeer(s, "b", messages.JoinRequest{})
	kartA := received[messages.JoinAccepted](a)[0].KartID

	clock.now = 1
	s.onDisconnect(a, nil)
	s.loop.tick()
	if s.KartCount() != 2 {
		t.Fatalf("kart removed during grace: KartCount = %d", s.KartCount())
	}

	clock.now = 11.5
	s.loop.tick()

	despawned := received[messages.KartDespawned](b)
	if len(despawned) != 1 || despawned[0].KartID != kartA {
		t.Fatalf("despawns = %+v, want kart %d", despawned, kartA)
	}
	if s.KartCount() != 1 {
		t.Errorf("KartCount = %d, want 1", s.KartCount())
	}
	if _, ok := s.findKart(kartA); ok {
		t.Errorf("kart %d still in world", kartA)
	}
}

func TestReconnectReclaimsKart(t *testing.T) {
	s, clock := newTestServer(t, testServerConfig())
	a := joinPeer(s, "a", messages.JoinRequest{})
	first := received[messages.JoinAccepted](a)[0]

	clock.now = 1
	move := messages.NewMove(0, 1, 0.5, 0.5)
	s.onMove(a, move)
	s.onDisconnect(a, errors.New("connection reset"))
	s.loop.tick()

	clock.now = 3
	back := joinPeer(s, "a2", messages.JoinRequest{ReconnectToken: first.ReconnectToken})

	accepted := received[messages.JoinAccepted](back)
	if len(accepted) != 1 || accepted[0].KartID != first.KartID {
		t.Fatalf("JoinAccepted = %+v, want kart %d", accepted, first.KartID)
	}
	if s.KartCount() != 1 {
		t.Errorf("KartCount = %d, want 1", s.KartCount())
	}

	// The authority keeps the client's simulated time across the reconnect
	entry, _ := s.kartEntry(first.KartID)
	if got := components.Kart.Get(entry).Replication.Authority().SimulatedTime(); got != 0.5 {
		t.Errorf("simulated time = %v, want 0.5", got)
	}
}

func TestInvalidTokenSpawnsNewKart(t *testing.T) {
	s, _ := newTestServer(t, testServerConfig())

	p := joinPeer(s, "a", messages.JoinRequest{ReconnectToken: "forged"})

	accepted := received[messages.JoinAccepted](p)
	if len(accepted) != 1 {
		t.Fatalf("JoinAccepted count = %d, want 1", len(accepted))
	}
	if s.KartCount() != 1 {
		t.Errorf("KartCount = %d, want 1", s.KartCount())
	}
}

func TestHostKartPublishesEveryTick(t *testing.T) {
	s, clock := newTestServer(t, testServerConfig())
	if err := s.spawnHostKart("circle"); err != nil {
		t.Fatalf("spawnHostKart: %v", err)
	}
	p := joinPeer(s, "a", messages.JoinRequest{})
	before := len(received[messages.StateUpdate](p))

	for i := 1; i <= 3; i++ {
		clock.now = float64(i) / 30
		s.loop.tick()
	}

	var hostStates int
	var lastTimestamp float64
	for _, u := range received[messages.StateUpdate](p)[before:] {
		if u.KartID == 1 {
			hostStates++
			lastTimestamp = u.State.LastMove.Timestamp
		}
	}
	if hostStates != 3 {
		t.Errorf("host states = %d, want 3", hostStates)
	}
	if lastTimestamp != 0.1 {
		t.Errorf("last host move t=%v, want 0.1", lastTimestamp)
	}
	// The host kart does not count against capacity
	if n := s.remoteKartCount(); n != 1 {
		t.Errorf("remoteKartCount = %d, want 1", n)
	}
}

func TestMoveIntakeWhileJoining(t *testing.T) {
	s, _ := newTestServer(t, testServerConfig())
	p := &fakePeer{id: "a"}
	s.onConnect(p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			s.onMove(p, messages.NewMove(0, 1, 0.01, float64(i)*0.01))
		}
	}()

	s.enqueue(joinCommand{peer: p, req: messages.JoinRequest{}})
	for i := 0; i < 20; i++ {
		s.loop.tick()
	}
	<-done
	s.loop.tick()

	if n := len(received[messages.JoinAccepted](p)); n != 1 {
		t.Errorf("JoinAccepted count = %d, want 1", n)
	}
}

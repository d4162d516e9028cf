package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/input"
	"github.com/automoto/kartsync/replication"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/automoto/kartsync/shared/protocol"
	"github.com/automoto/kartsync/systems"
	"github.com/automoto/kartsync/systems/factory"
	"github.com/automoto/kartsync/tags"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/filter"
	"golang.org/x/time/rate"
)

// Peer is a connected client. *router.NetworkClient satisfies it.
type Peer interface {
	Id() string
	SendMessage(msg any) error
}

// Join rejection reasons sent to clients
const (
	RejectVersion       = "version mismatch"
	RejectFull          = "server full"
	RejectAlreadyJoined = "already joined"
	RejectSpawnFailed   = "could not spawn kart"
)

const commandQueueSize = 1024

var kartQuery = donburi.NewQuery(filter.Contains(tags.Kart, components.Kart))

type peerState struct {
	peer    Peer
	kartID  uint32 // zero until joined
	limiter *rate.Limiter
}

// kartSlot is the registry entry for a kart. peerID is empty while the kart
// is detached or driven by the server itself.
type kartSlot struct {
	entity     donburi.Entity
	name       string
	peerID     string
	host       bool
	detachedAt float64
}

// Server manages the kart world and client connections. Router callbacks
// only queue commands; the world is touched by the game loop alone.
type Server struct {
	cfg    config.ServerConfig
	ecs    *ecs.ECS
	arena  *kartsim.Arena
	loop   *GameLoop
	tokens *TokenIssuer
	clock  replication.Clock
	logger *log.Logger

	transport *transports.WsServerTransport

	commands chan command
	outbox   []any

	// Track which peer owns which kart
	mu        sync.RWMutex
	peers     map[string]*peerState
	karts     map[uint32]*kartSlot
	nextID    uint32
	nextSpawn int
}

// NewServer creates a server for the given arena.
func NewServer(cfg config.ServerConfig, tickRate int, arena *kartsim.Arena, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("server")
	}

	tokens, err := NewTokenIssuer(cfg.TokenSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	s := &Server{
		cfg:      cfg,
		ecs:      ecs.NewECS(donburi.NewWorld()),
		arena:    arena,
		tokens:   tokens,
		clock:    replication.ClockFunc(func() float64 { return time.Since(started).Seconds() }),
		logger:   logger,
		commands: make(chan command, commandQueueSize),
		peers:    make(map[string]*peerState),
		karts:    make(map[uint32]*kartSlot),
		nextID:   1,
	}
	s.loop = NewGameLoop(s, tickRate)

	dt := 1 / float64(tickRate)
	s.ecs.AddSystem(systems.NewInputSystem(dt, func() float64 { return s.clock.Now() }))
	s.ecs.AddSystem(systems.NewReplicationSystem(dt, logger))

	return s, nil
}

// Start spawns the host kart if configured, then serves on the given port.
func (s *Server) Start(port uint) error {
	if s.cfg.HostKart {
		if err := s.spawnHostKart(s.cfg.HostScript); err != nil {
			return fmt.Errorf("spawn host kart: %w", err)
		}
	}

	s.setupRouterCallbacks()

	go s.loop.Run()

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	s.loop.Stop()
}

func (s *Server) setupRouterCallbacks() {
	protocol.RouteServer(protocol.ServerHandlers{
		OnConnect: func(c *router.NetworkClient) {
			s.onConnect(c)
		},
		OnDisconnect: func(c *router.NetworkClient, err error) {
			s.onDisconnect(c, err)
		},
		OnJoin: func(c *router.NetworkClient, msg messages.JoinRequest) {
			s.enqueue(joinCommand{peer: c, req: msg})
		},
		OnMove: func(c *router.NetworkClient, msg messages.Move) {
			s.onMove(c, msg)
		},
		OnError: func(c *router.NetworkClient, err error) {
			s.logger.Error("client error", "peer", c.Id(), "err", err)
		},
		OnUnexpected: func(c *router.NetworkClient, msg any) {
			s.logger.Debug("ignoring client-bound message", "peer", c.Id(), "type", fmt.Sprintf("%T", msg))
		},
	})
}

func (s *Server) onConnect(peer Peer) {
	s.logger.Info("client connected", "peer", peer.Id())

	var limiter *rate.Limiter
	if s.cfg.MoveRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.MoveRate), s.cfg.MoveBurst)
	}

	s.mu.Lock()
	s.peers[peer.Id()] = &peerState{peer: peer, limiter: limiter}
	s.mu.Unlock()
}

func (s *Server) onDisconnect(peer Peer, err error) {
	if err != nil {
		s.logger.Info("client disconnected", "peer", peer.Id(), "err", err)
	} else {
		s.logger.Info("client disconnected", "peer", peer.Id())
	}
	s.enqueue(leaveCommand{peer: peer})
}

func (s *Server) onMove(peer Peer, m messages.Move) {
	s.mu.RLock()
	ps, ok := s.peers[peer.Id()]
	joined := ok && ps.kartID != 0
	s.mu.RUnlock()

	if !joined {
		return
	}
	if ps.limiter != nil && !ps.limiter.Allow() {
		s.logger.Debug("move rate exceeded, dropping", "peer", peer.Id(), "timestamp", m.Timestamp)
		return
	}
	s.enqueue(moveCommand{peer: peer, move: m})
}

func (s *Server) enqueue(cmd command) {
	select {
	case s.commands <- cmd:
	default:
		s.logger.Warn("command queue full, dropping", "command", fmt.Sprintf("%T", cmd))
	}
}

// ProcessCommands applies every queued join, move and leave in arrival
// order. Called by the game loop only.
func (s *Server) ProcessCommands() {
	for {
		select {
		case cmd := <-s.commands:
			switch c := cmd.(type) {
			case joinCommand:
				s.join(c.peer, c.req)
			case moveCommand:
				s.applyMove(c.peer, c.move)
			case leaveCommand:
				s.leave(c.peer)
			}
		default:
			return
		}
	}
}

func (s *Server) join(peer Peer, req messages.JoinRequest) {
	s.mu.RLock()
	ps, connected := s.peers[peer.Id()]
	s.mu.RUnlock()
	if !connected {
		return
	}

	if s.cfg.Version != "" && req.Version != s.cfg.Version {
		s.reject(peer, RejectVersion)
		return
	}
	if ps.kartID != 0 {
		s.reject(peer, RejectAlreadyJoined)
		return
	}

	if id, ok := s.reclaim(req.ReconnectToken); ok {
		s.bind(ps, id)
		s.logger.Info("kart reclaimed", "peer", peer.Id(), "kart", id)
		s.accept(ps, id)
		return
	}

	if s.remoteKartCount() >= s.cfg.MaxKarts {
		s.reject(peer, RejectFull)
		return
	}

	id, err := s.spawnKart(req.PlayerName)
	if err != nil {
		s.logger.Error("failed to spawn kart", "peer", peer.Id(), "err", err)
		s.reject(peer, RejectSpawnFailed)
		return
	}
	s.bind(ps, id)
	s.logger.Info("kart spawned", "peer", peer.Id(), "kart", id, "name", req.PlayerName)
	s.accept(ps, id)
}

// reclaim returns the detached kart named by token, if any.
func (s *Server) reclaim(token string) (uint32, bool) {
	if token == "" {
		return 0, false
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("reconnect token refused", "err", err)
		return 0, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.karts[id]
	if !ok || slot.host || slot.peerID != "" {
		return 0, false
	}
	return id, true
}

func (s *Server) bind(ps *peerState, id uint32) {
	s.mu.Lock()
	ps.kartID = id
	s.karts[id].peerID = ps.peer.Id()
	s.mu.Unlock()
}

func (s *Server) spawnKart(name string) (uint32, error) {
	id, pos, rot := s.reserve()

	_, err := factory.CreateKart(s.ecs, s.arena, factory.KartSpec{
		ID:        id,
		Name:      name,
		Role:      netconfig.RoleNone,
		Position:  pos,
		Rotation:  rot,
		Publisher: s.publisherFor(id),
		Clock:     s.clock,
		StartTime: s.clock.Now(),
		Logger:    s.logger.With("kart", id),
	})
	if err != nil {
		return 0, err
	}
	s.register(id, name, false)
	return id, nil
}

func (s *Server) spawnHostKart(script string) error {
	driver, err := input.NewDriver(script)
	if err != nil {
		return err
	}

	id, pos, rot := s.reserve()
	_, err = factory.CreateKart(s.ecs, s.arena, factory.KartSpec{
		ID:        id,
		Name:      "host",
		Role:      netconfig.RoleAuthority,
		Position:  pos,
		Rotation:  rot,
		Driver:    driver,
		Publisher: s.publisherFor(id),
		Clock:     s.clock,
		Logger:    s.logger.With("kart", id),
	})
	if err != nil {
		return err
	}
	s.register(id, "host", true)
	s.logger.Info("host kart spawned", "kart", id, "script", script)
	return nil
}

func (s *Server) reserve() (uint32, mgl64.Vec3, mgl64.Quat) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	spawn := s.nextSpawn
	s.nextSpawn++
	s.mu.Unlock()

	pos, rot := s.arena.Spawn(spawn)
	return id, pos, rot
}

func (s *Server) register(id uint32, name string, host bool) {
	entity, ok := s.findKart(id)
	if !ok {
		return
	}
	s.mu.Lock()
	s.karts[id] = &kartSlot{entity: entity, name: name, host: host}
	s.mu.Unlock()
}

// accept replies to the joining peer, sends it every kart's current state
// and announces its kart to everyone.
func (s *Server) accept(ps *peerState, id uint32) {
	token, err := s.tokens.Issue(id)
	if err != nil {
		s.logger.Error("failed to issue reconnect token", "kart", id, "err", err)
	}

	s.send(ps.peer, messages.JoinAccepted{
		KartID:         id,
		ReconnectToken: token,
		ServerName:     s.cfg.Name,
		TickRate:       s.loop.tickRate,
		ServerTime:     s.clock.Now(),
	})

	for _, update := range s.states() {
		if update.KartID != id {
			s.send(ps.peer, update)
		}
	}

	if entry, ok := s.kartEntry(id); ok {
		kart := components.Kart.Get(entry)
		s.outbox = append(s.outbox, messages.StateUpdate{
			KartID: id,
			State:  kart.Replication.Authority().State(),
		})
	}
}

func (s *Server) reject(peer Peer, reason string) {
	s.logger.Warn("join rejected", "peer", peer.Id(), "reason", reason)
	s.send(peer, messages.JoinRejected{Reason: reason})
}

func (s *Server) applyMove(peer Peer, m messages.Move) {
	s.mu.RLock()
	var kartID uint32
	if ps, ok := s.peers[peer.Id()]; ok {
		kartID = ps.kartID
	}
	s.mu.RUnlock()
	if kartID == 0 {
		return
	}

	entry, ok := s.kartEntry(kartID)
	if !ok {
		return
	}
	// Rejections are logged by the authority; the client corrects itself
	// from the next accepted state.
	_, _ = components.Kart.Get(entry).Replication.ReceiveMove(m)
}

func (s *Server) leave(peer Peer) {
	s.mu.Lock()
	ps, ok := s.peers[peer.Id()]
	delete(s.peers, peer.Id())
	if ok && ps.kartID != 0 {
		if slot, exists := s.karts[ps.kartID]; exists {
			slot.peerID = ""
			slot.detachedAt = s.clock.Now()
		}
	}
	s.mu.Unlock()

	if ok && ps.kartID != 0 {
		s.logger.Info("kart detached", "kart", ps.kartID, "grace", s.cfg.ReconnectGrace)
	}
}

// reapDetached removes karts whose owner did not come back in time.
func (s *Server) reapDetached() {
	now := s.clock.Now()
	grace := s.cfg.ReconnectGrace.Seconds()

	var expired []uint32
	s.mu.Lock()
	for id, slot := range s.karts {
		if slot.host || slot.peerID != "" {
			continue
		}
		if now-slot.detachedAt >= grace {
			expired = append(expired, id)
			delete(s.karts, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		if entry, ok := s.kartEntryFromWorld(id); ok {
			factory.RemoveKart(s.ecs, entry)
		}
		s.outbox = append(s.outbox, messages.KartDespawned{KartID: id})
		s.logger.Info("kart despawned", "kart", id)
	}
}

// flush broadcasts everything published this tick to every joined peer.
func (s *Server) flush() {
	if len(s.outbox) == 0 {
		return
	}

	s.mu.RLock()
	targets := make([]Peer, 0, len(s.peers))
	for _, ps := range s.peers {
		if ps.kartID != 0 {
			targets = append(targets, ps.peer)
		}
	}
	s.mu.RUnlock()

	for _, msg := range s.outbox {
		for _, peer := range targets {
			s.send(peer, msg)
		}
	}
	clear(s.outbox)
	s.outbox = s.outbox[:0]
}

func (s *Server) send(peer Peer, msg any) {
	if err := peer.SendMessage(msg); err != nil {
		s.logger.Debug("send failed", "peer", peer.Id(), "type", fmt.Sprintf("%T", msg), "err", err)
	}
}

// publisherFor returns the StatePublisher for one kart. Published states are
// broadcast at the end of the tick.
func (s *Server) publisherFor(id uint32) replication.StatePublisher {
	return kartPublisher{server: s, id: id}
}

type kartPublisher struct {
	server *Server
	id     uint32
}

func (p kartPublisher) Publish(state messages.CanonicalState) {
	p.server.outbox = append(p.server.outbox, messages.StateUpdate{KartID: p.id, State: state})
}

// states returns the current canonical state of every kart.
func (s *Server) states() []messages.StateUpdate {
	var out []messages.StateUpdate
	kartQuery.Each(s.ecs.World, func(entry *donburi.Entry) {
		kart := components.Kart.Get(entry)
		if a := kart.Replication.Authority(); a != nil {
			out = append(out, messages.StateUpdate{KartID: kart.ID, State: a.State()})
		}
	})
	return out
}

func (s *Server) kartEntry(id uint32) (*donburi.Entry, bool) {
	s.mu.RLock()
	slot, ok := s.karts[id]
	s.mu.RUnlock()
	if !ok || !s.ecs.World.Valid(slot.entity) {
		return nil, false
	}
	return s.ecs.World.Entry(slot.entity), true
}

// kartEntryFromWorld finds a kart by scanning the world, for karts already
// dropped from the registry.
func (s *Server) kartEntryFromWorld(id uint32) (*donburi.Entry, bool) {
	entity, ok := s.findKart(id)
	if !ok {
		return nil, false
	}
	return s.ecs.World.Entry(entity), true
}

func (s *Server) findKart(id uint32) (donburi.Entity, bool) {
	var found donburi.Entity
	ok := false
	kartQuery.Each(s.ecs.World, func(entry *donburi.Entry) {
		if !ok && components.Kart.Get(entry).ID == id {
			found, ok = entry.Entity(), true
		}
	})
	return found, ok
}

func (s *Server) remoteKartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, slot := range s.karts {
		if !slot.host {
			n++
		}
	}
	return n
}

// World returns the ECS world
func (s *Server) World() donburi.World {
	return s.ecs.World
}

// PlayerCount returns the number of connected players
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ps := range s.peers {
		if ps.kartID != 0 {
			n++
		}
	}
	return n
}

// KartCount returns the number of karts in the arena, detached ones included.
func (s *Server) KartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.karts)
}

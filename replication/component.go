package replication

import (
	"fmt"

	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/charmbracelet/log"
)

// Config wires a Component to its collaborators. Which collaborators are
// required depends on Roles.
type Config struct {
	Simulator Simulator
	Visual    VisualNode     // observer
	Sender    MoveSender     // controller
	Publisher StatePublisher // authority and none
	Clock     Clock          // authority and none

	// Roles lists every role the host may dispatch this kart with.
	Roles []netconfig.Role

	// RunAheadTolerance loosens the running-ahead check, in seconds.
	RunAheadTolerance float64
	// StartTime seeds the client's simulated time on the server.
	StartTime float64
	// MaxPendingMoves caps the controller's move buffer. Zero is unbounded.
	MaxPendingMoves int

	Logger *log.Logger
}

// Component is the per-kart replication state. The host calls Tick once per
// tick and OnCanonicalState once per received state, both with the local
// peer's current role for the kart.
type Component struct {
	sim    Simulator
	sender MoveSender
	logger *log.Logger

	buffer   *MoveBuffer
	lastSent float64
	sent     bool

	authority  *Authority
	lastCommit float64
	committed  bool

	smoother *Smoother
}

// New validates cfg and builds a Component. A missing collaborator is a
// wiring error reported here rather than on every tick.
func New(cfg Config) (*Component, error) {
	if cfg.Simulator == nil {
		return nil, ErrMissingSimulator
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("replication")
	}

	c := &Component{
		sim:    cfg.Simulator,
		sender: cfg.Sender,
		logger: logger,
	}

	for _, role := range cfg.Roles {
		switch role {
		case netconfig.RoleController:
			if cfg.Sender == nil {
				return nil, ErrMissingSender
			}
			if c.buffer == nil {
				c.buffer = NewMoveBuffer(cfg.MaxPendingMoves)
			}
		case netconfig.RoleAuthority, netconfig.RoleNone:
			if c.authority != nil {
				continue
			}
			a, err := NewAuthority(cfg.Simulator, cfg.Publisher, cfg.Clock,
				cfg.RunAheadTolerance, cfg.StartTime, logger)
			if err != nil {
				return nil, err
			}
			c.authority = a
		case netconfig.RoleObserver:
			if c.smoother != nil {
				continue
			}
			s, err := NewSmoother(cfg.Simulator, cfg.Visual)
			if err != nil {
				return nil, err
			}
			c.smoother = s
		default:
			return nil, fmt.Errorf("%w: %v", ErrRoleNotConfigured, role)
		}
	}

	return c, nil
}

// Tick runs the per-tick work for role. A send failure leaves the move
// buffered; the next accepted state corrects the prediction either way.
func (c *Component) Tick(role netconfig.Role, dt float64) error {
	switch role {
	case netconfig.RoleController:
		if c.buffer == nil {
			return fmt.Errorf("%w: %v", ErrRoleNotConfigured, role)
		}
		return c.sendLastMove()
	case netconfig.RoleAuthority:
		if c.authority == nil {
			return fmt.Errorf("%w: %v", ErrRoleNotConfigured, role)
		}
		c.commitLastMove()
	case netconfig.RoleObserver:
		if c.smoother == nil {
			return fmt.Errorf("%w: %v", ErrRoleNotConfigured, role)
		}
		c.smoother.Tick(dt)
	}
	return nil
}

func (c *Component) commitLastMove() {
	m := c.sim.LastMove()
	if m.DeltaTime <= 0 {
		return
	}
	// Nothing new to publish
	if c.committed && m.Timestamp == c.lastCommit {
		return
	}
	c.authority.Commit(m)
	c.lastCommit, c.committed = m.Timestamp, true
}

func (c *Component) sendLastMove() error {
	m := c.sim.LastMove()
	if m.DeltaTime <= 0 {
		return nil
	}
	// The simulator did not advance this tick
	if c.sent && m.Timestamp == c.lastSent {
		return nil
	}

	if err := c.buffer.Append(m); err != nil {
		return err
	}
	c.lastSent, c.sent = m.Timestamp, true
	if err := c.sender.SendMove(m); err != nil {
		return fmt.Errorf("send move: %w", err)
	}
	return nil
}

// OnCanonicalState handles a state received from the server. Controllers
// reconcile, observers start a new span and everyone else ignores it.
func (c *Component) OnCanonicalState(role netconfig.Role, s messages.CanonicalState) {
	switch role {
	case netconfig.RoleController:
		if c.buffer != nil {
			c.reconcile(s)
		}
	case netconfig.RoleObserver:
		if c.smoother != nil {
			c.smoother.OnSnapshot(s)
		}
	}
}

func (c *Component) reconcile(s messages.CanonicalState) {
	c.sim.SetTransform(s.Position, s.Rotation)
	c.sim.SetVelocity(s.Velocity)

	pruned := c.buffer.Prune(s.LastMove)
	for _, m := range c.buffer.moves {
		c.sim.ExecuteMove(m)
	}

	c.logger.Debug("reconciled", "acked", s.LastMove.Timestamp, "pruned", pruned, "replayed", c.buffer.Len())
}

// ReceiveMove validates and applies a move that arrived from the kart's
// controlling client.
func (c *Component) ReceiveMove(m messages.Move) (messages.CanonicalState, error) {
	if c.authority == nil {
		return messages.CanonicalState{}, fmt.Errorf("%w: %v", ErrRoleNotConfigured, netconfig.RoleNone)
	}
	return c.authority.AcceptMove(m)
}

// Pending returns the number of unacknowledged moves.
func (c *Component) Pending() int {
	if c.buffer == nil {
		return 0
	}
	return c.buffer.Len()
}

// Authority returns the server-side authority, or nil on clients.
func (c *Component) Authority() *Authority { return c.authority }

// Smoother returns the observer smoother, or nil when not observing.
func (c *Component) Smoother() *Smoother { return c.smoother }

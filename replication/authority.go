package replication

import (
	"errors"
	"fmt"

	"github.com/automoto/kartsync/shared/messages"
	"github.com/charmbracelet/log"
)

var (
	// ErrClientRunningAhead means the client claims more simulated time than
	// has passed on the server.
	ErrClientRunningAhead = errors.New("client running ahead of server clock")
	// ErrMalformedMove means steering or throttle is out of range.
	ErrMalformedMove = errors.New("malformed move")
)

// RejectionError describes a move the authority refused. Unwrap returns the
// reason, so errors.Is works against the sentinels above.
type RejectionError struct {
	Reason error
	Move   messages.Move
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("move rejected at t=%.3f: %v", e.Move.Timestamp, e.Reason)
}

func (e *RejectionError) Unwrap() error { return e.Reason }

// Authority validates and applies moves for one kart on the server.
type Authority struct {
	sim       Simulator
	publisher StatePublisher
	clock     Clock
	tolerance float64
	logger    *log.Logger

	simulatedTime float64
	state         messages.CanonicalState
}

// NewAuthority creates an authority whose client simulated time starts at
// startTime, normally the server time when the kart spawned.
func NewAuthority(sim Simulator, publisher StatePublisher, clock Clock, tolerance, startTime float64, logger *log.Logger) (*Authority, error) {
	if sim == nil {
		return nil, ErrMissingSimulator
	}
	if publisher == nil {
		return nil, ErrMissingPublisher
	}
	if clock == nil {
		return nil, ErrMissingClock
	}
	if logger == nil {
		logger = log.Default().WithPrefix("authority")
	}

	return &Authority{
		sim:           sim,
		publisher:     publisher,
		clock:         clock,
		tolerance:     tolerance,
		logger:        logger,
		simulatedTime: startTime,
		state:         stateOf(sim),
	}, nil
}

// AcceptMove validates a move received from the controlling client and, if
// it passes, executes and publishes it. A rejected move changes nothing and
// is returned as a *RejectionError.
func (a *Authority) AcceptMove(m messages.Move) (messages.CanonicalState, error) {
	if err := a.validate(m); err != nil {
		rej := &RejectionError{Reason: err, Move: m}
		a.logger.Warn("rejected move",
			"reason", err,
			"timestamp", m.Timestamp,
			"dt", m.DeltaTime,
			"simulated", a.simulatedTime)
		return a.state, rej
	}

	a.simulatedTime += m.DeltaTime
	a.sim.ExecuteMove(m)
	return a.publish(m), nil
}

// Commit records and publishes a move the simulator has already executed
// on the server. It skips validation.
func (a *Authority) Commit(m messages.Move) messages.CanonicalState {
	return a.publish(m)
}

func (a *Authority) validate(m messages.Move) error {
	if a.simulatedTime+m.DeltaTime >= a.clock.Now()+a.tolerance {
		return ErrClientRunningAhead
	}
	if !m.IsValid() {
		return ErrMalformedMove
	}
	return nil
}

func (a *Authority) publish(m messages.Move) messages.CanonicalState {
	a.state = stateOf(a.sim)
	a.state.LastMove = m
	a.publisher.Publish(a.state)
	return a.state
}

// SimulatedTime is the total DeltaTime of every accepted move plus the
// start time.
func (a *Authority) SimulatedTime() float64 { return a.simulatedTime }

// State returns the last published canonical state.
func (a *Authority) State() messages.CanonicalState { return a.state }

func stateOf(sim Simulator) messages.CanonicalState {
	return messages.CanonicalState{
		LastMove: sim.LastMove(),
		Position: sim.Position(),
		Rotation: sim.Rotation(),
		Velocity: sim.Velocity(),
	}
}

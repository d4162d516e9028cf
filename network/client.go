package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/automoto/kartsync/shared/messages"
	"github.com/automoto/kartsync/shared/protocol"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrNotJoined    = errors.New("not joined")
)

// Client manages a WebSocket connection to the kart server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state          ClientState
	lastError      error
	kartID         uint32
	reconnectToken string
	serverName     string
	tickRate       int
	conn           *websocket.Conn

	clock serverClock

	// FIFO so that every state change reaches the snapshot system once
	stateCh   chan messages.StateUpdate
	despawnCh chan uint32

	logger *log.Logger
}

func NewClient(queueSize int, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default().WithPrefix("client")
	}
	return &Client{
		state:     StateDisconnected,
		stateCh:   make(chan messages.StateUpdate, queueSize),
		despawnCh: make(chan uint32, queueSize),
		logger:    logger,
	}
}

// Connect dials the server in a background goroutine and initiates the join
// handshake. A non-empty reconnectToken asks the server for a previous kart.
func (c *Client) Connect(address, version, playerName, reconnectToken string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	protocol.RouteClient(protocol.ClientHandlers{
		OnConnect: func(_ *router.NetworkClient) {
			c.logger.Info("connected to server", "address", address)
			c.mu.Lock()
			c.state = StateConnected
			c.mu.Unlock()

			err := c.write(messages.JoinRequest{
				Version:        version,
				PlayerName:     playerName,
				ReconnectToken: reconnectToken,
			})
			if err != nil {
				c.setError(fmt.Errorf("failed to send join request: %w", err))
			}
		},
		OnJoinAccepted: func(_ *router.NetworkClient, msg messages.JoinAccepted) {
			c.logger.Info("join accepted",
				"kart", msg.KartID, "server", msg.ServerName, "tickRate", msg.TickRate)
			c.mu.Lock()
			c.kartID = msg.KartID
			c.reconnectToken = msg.ReconnectToken
			c.serverName = msg.ServerName
			c.tickRate = msg.TickRate
			c.clock.sync(msg.ServerTime, time.Now())
			c.state = StateJoinedGame
			c.mu.Unlock()
		},
		OnJoinRejected: func(_ *router.NetworkClient, msg messages.JoinRejected) {
			c.logger.Warn("join rejected", "reason", msg.Reason)
			c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
		},
		OnState: func(_ *router.NetworkClient, msg messages.StateUpdate) {
			select {
			case c.stateCh <- msg:
			default:
				c.logger.Warn("state queue full, dropping update", "kart", msg.KartID)
			}
		},
		OnDespawn: func(_ *router.NetworkClient, msg messages.KartDespawned) {
			select {
			case c.despawnCh <- msg.KartID:
			default:
				c.logger.Warn("despawn queue full", "kart", msg.KartID)
			}
		},
		OnDisconnect: func(_ *router.NetworkClient, err error) {
			c.logger.Info("disconnected", "err", err)
			c.mu.Lock()
			if c.state != StateError {
				c.state = StateDisconnected
			}
			c.conn = nil
			c.mu.Unlock()
		},
		OnError: func(_ *router.NetworkClient, err error) {
			c.logger.Error("router error", "err", err)
		},
		OnUnexpected: func(_ *router.NetworkClient, msg any) {
			c.logger.Debug("ignoring server-bound message", "type", fmt.Sprintf("%T", msg))
		},
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	protocol.Reset()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// KartID is the kart this client drives. Zero until the join is accepted.
func (c *Client) KartID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kartID
}

func (c *Client) ReconnectToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectToken
}

func (c *Client) ServerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverName
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// ServerTime estimates the server clock in seconds.
func (c *Client) ServerTime() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock.now(time.Now())
}

// SendMove sends a predicted move to the server.
func (c *Client) SendMove(m messages.Move) error {
	if c.State() != StateJoinedGame {
		return ErrNotJoined
	}
	return c.write(m)
}

// DrainStates returns every state update received since the last call, in
// arrival order. Non-blocking.
func (c *Client) DrainStates() []messages.StateUpdate {
	return drainChan(c.stateCh)
}

// DrainDespawns returns the IDs of karts that left since the last call.
func (c *Client) DrainDespawns() []uint32 {
	return drainChan(c.despawnCh)
}

func (c *Client) write(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

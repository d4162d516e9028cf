package config

import "time"

// KartConfig contains the movement model shared by every peer. Client and
// server must run identical values or replay diverges from the server.
type KartConfig struct {
	// Physics
	Mass                         float64 // kg
	MaxDrivingForce              float64 // N at full throttle
	DragCoefficient              float64 // kg/m
	RollingResistanceCoefficient float64
	MinTurningRadius             float64 // m at full lock
	Gravity                      float64 // m/s^2

	// Dimensions (cm)
	CollisionWidth float64
	CollisionDepth float64
}

// NetConfig contains replication tunables.
type NetConfig struct {
	TickRate int

	// RunAheadTolerance is added to the server clock when checking whether a
	// client's simulated time is running ahead. Zero is the strict check.
	RunAheadTolerance float64

	// StateQueueSize bounds the client's pending state updates per tick.
	StateQueueSize int

	// MaxPendingMoves caps unacknowledged moves held by a controller. The
	// oldest move is dropped when full. Zero means unbounded.
	MaxPendingMoves int
}

// ServerConfig contains dedicated server settings.
type ServerConfig struct {
	Port           uint
	Name           string
	Version        string // required client version, empty accepts any
	MaxKarts       int
	ReconnectGrace time.Duration
	SessionTTL     time.Duration
	TokenSecret    string  // empty generates a random secret per run
	MoveRate       float64 // moves/s accepted per peer, 0 disables the limit
	MoveBurst      int
	AssetsDir      string // empty uses the embedded arena
	Level          string
	HostKart       bool
	HostScript     string
}

// ClientConfig contains headless client settings.
type ClientConfig struct {
	Address      string
	PlayerName   string
	Script       string
	StatusPeriod time.Duration
}

var Kart KartConfig
var Net NetConfig
var Server ServerConfig
var Client ClientConfig

func init() {
	Kart = KartConfig{
		Mass:                         1000,
		MaxDrivingForce:              10000,
		DragCoefficient:              16,
		RollingResistanceCoefficient: 0.015,
		MinTurningRadius:             10,
		Gravity:                      9.81,
		CollisionWidth:               160,
		CollisionDepth:               160,
	}

	Net = NetConfig{
		TickRate:          30,
		RunAheadTolerance: 0,
		StateQueueSize:    256,
		MaxPendingMoves:   512,
	}

	Server = ServerConfig{
		Port:           7373,
		Name:           "Kartsync Server",
		MaxKarts:       8,
		ReconnectGrace: 10 * time.Second,
		SessionTTL:     5 * time.Minute,
		MoveRate:       120,
		MoveBurst:      30,
		Level:          "arena",
		HostScript:     "figure8",
	}

	Client = ClientConfig{
		Address:      "localhost:7373",
		PlayerName:   "bot",
		Script:       "figure8",
		StatusPeriod: 2 * time.Second,
	}
}

// Package netconfig defines lightweight types and constants shared between
// client and server for replication. It must stay free of transport, ECS and
// physics dependencies so every other package can import it.
package netconfig

const (
	// UnitScale converts simulator velocity units (m/s) into the distance
	// units used for positions (cm). Hermite derivatives are scaled by it.
	UnitScale = 100.0

	// InterpolationEpsilon is the smallest snapshot interval an observer
	// will divide by. Anything below it skips interpolation for the tick.
	InterpolationEpsilon = 1e-4

	// DefaultTickRate is the server tick rate when none is configured.
	DefaultTickRate = 30

	// ProtocolVersion is checked during the join handshake when the server
	// is started with a required version.
	ProtocolVersion = "kartsync/1"
)

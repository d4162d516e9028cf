package messages

// JoinRequest is sent by a client after connecting to request a kart.
type JoinRequest struct {
	Version        string
	PlayerName     string
	ReconnectToken string // empty for a fresh join
}

// JoinAccepted is sent by the server when a client's join request is accepted.
type JoinAccepted struct {
	KartID         uint32
	ReconnectToken string
	ServerName     string
	TickRate       int
	ServerTime     float64 // server clock when the reply was built
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}

package netconfig

// Role is the local peer's relationship to a replicated entity for the
// current tick. It is supplied by the host every tick and never changes
// mid-tick.
type Role int

const (
	// RoleNone runs nothing per tick. The server uses it for karts whose
	// moves arrive over the network.
	RoleNone Role = iota
	// RoleController predicts the entity from local input ahead of the server.
	RoleController
	// RoleAuthority is the server driving the entity from local input.
	RoleAuthority
	// RoleObserver smooths the entity from received snapshots.
	RoleObserver
)

var roleNames = map[Role]string{
	RoleNone:       "none",
	RoleController: "controller",
	RoleAuthority:  "authority",
	RoleObserver:   "observer",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

package components

import (
	"github.com/automoto/kartsync/replication"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/automoto/kartsync/shared/netconfig"
	"github.com/yohamta/donburi"
)

// KartData ties a kart's simulator to its replication state.
type KartData struct {
	ID          uint32
	Name        string
	Role        netconfig.Role // this peer's role for the kart
	Sim         *kartsim.Kart
	Replication *replication.Component
}

var Kart = donburi.NewComponentType[KartData]()

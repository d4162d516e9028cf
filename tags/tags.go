package tags

import "github.com/yohamta/donburi"

var (
	Kart = donburi.NewTag().SetName("Kart")
	// LocalKart marks the kart this peer drives.
	LocalKart = donburi.NewTag().SetName("LocalKart")
)
